package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/jnikolaeva/eshop-common/httpkit"

	"github.com/krishimitra/authservice/internal/auth/application"
)

const (
	endpointRegister = "register"
	endpointLogin    = "login"
)

// Messages shown verbatim by the web client.
const (
	msgRegistered         = "User registered successfully"
	msgSignedIn           = "Login successful"
	msgAllFieldsRequired  = "All fields are required"
	msgCredentialsMissing = "Email and password are required"
	msgEmailRegistered    = "Email already registered"
	msgInvalidCredentials = "Invalid email or password"
)

var missingFieldsMessages = map[string]string{
	endpointRegister: msgAllFieldsRequired,
	endpointLogin:    msgCredentialsMissing,
}

var (
	ErrBadRequest      = errors.New("invalid request")
	ErrTooManyRequests = errors.New("too many requests")
)

type HttpServer struct {
	errorLogger log.Logger
	idService   application.IdentityService
	authService application.AuthService
	metrics     *httpkit.MetricsHolder
	limiter     *rate.Limiter
}

// NewHttpServer builds the register/login API. metrics and limiter may be nil.
func NewHttpServer(errorLogger log.Logger, idService application.IdentityService, authService application.AuthService, metrics *httpkit.MetricsHolder, limiter *rate.Limiter) *HttpServer {
	return &HttpServer{
		errorLogger: errorLogger,
		idService:   idService,
		authService: authService,
		metrics:     metrics,
		limiter:     limiter,
	}
}

func (s *HttpServer) MakeHandler(pathPrefix string) http.Handler {
	r := mux.NewRouter()
	sr := r
	if pathPrefix != "" {
		sr = r.PathPrefix(pathPrefix).Subrouter()
	}
	// the browser client posts to paths with a trailing slash
	register := s.instrument(s.makeRegisterUserHandler(), endpointRegister)
	for _, path := range []string{"/register", "/register/"} {
		sr.Handle(path, register).Methods(http.MethodPost, http.MethodOptions)
	}
	login := s.instrument(s.makeSignInHandler(), endpointLogin)
	for _, path := range []string{"/login", "/login/"} {
		sr.Handle(path, login).Methods(http.MethodPost, http.MethodOptions)
	}
	r.Use(allowCrossOrigin, s.limitRate)
	return r
}

func (s *HttpServer) instrument(next http.Handler, endpoint string) http.Handler {
	if s.metrics == nil {
		return next
	}
	return httpkit.InstrumentingMiddleware(next, s.metrics, endpoint)
}

func (s *HttpServer) makeRegisterUserHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := decodeRegisterUserRequest(ctx, r)
		if err != nil {
			s.encodeErrorResponse(ctx, endpointRegister, err, w)
			return
		}
		err = s.idService.Register(ctx, application.User{
			Name:       req.Name,
			Email:      req.Email,
			Password:   req.Password,
			Occupation: application.Occupation(req.Occupation),
			Age:        string(req.Age),
			Gender:     string(req.Gender),
			Phone:      string(req.Phone),
		})
		if err != nil {
			s.encodeErrorResponse(ctx, endpointRegister, err, w)
			return
		}
		_ = s.encodeResponse(ctx, w, http.StatusCreated, &messageResponse{Message: msgRegistered})
	})
}

func (s *HttpServer) makeSignInHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := decodeSignInRequest(ctx, r)
		if err != nil {
			s.encodeErrorResponse(ctx, endpointLogin, err, w)
			return
		}

		user, err := s.authService.Login(ctx, req.Email, req.Password)
		if err != nil {
			s.encodeErrorResponse(ctx, endpointLogin, err, w)
			return
		}

		_ = s.encodeResponse(ctx, w, http.StatusOK, &signInResponse{
			Message: msgSignedIn,
			User: userResponse{
				Name:       user.Name,
				Email:      user.Email,
				Occupation: string(user.Occupation),
			},
		})
	})
}

func decodeRegisterUserRequest(_ context.Context, r *http.Request) (req registerUserRequest, err error) {
	if e := json.NewDecoder(r.Body).Decode(&req); e != nil && e != io.EOF {
		return req, errors.WithMessage(ErrBadRequest, "failed to decode request body")
	}
	return req, nil
}

func decodeSignInRequest(_ context.Context, r *http.Request) (req signInRequest, err error) {
	if e := json.NewDecoder(r.Body).Decode(&req); e != nil && e != io.EOF {
		return req, errors.WithMessage(ErrBadRequest, "failed to decode request body")
	}
	return req, nil
}

func (s *HttpServer) encodeResponse(_ context.Context, w http.ResponseWriter, status int, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(response)
}

func (s *HttpServer) encodeErrorResponse(_ context.Context, endpoint string, err error, w http.ResponseWriter) {
	_ = s.errorLogger.Log("endpoint", endpoint, "err", fmt.Sprintf("%+v", err))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	var errorResponse = translateError(endpoint, err)
	w.WriteHeader(errorResponse.Status)
	_ = json.NewEncoder(w).Encode(errorResponse.Response)
}

type transportError struct {
	Status   int
	Response errorResponse
}

// translateError maps err to a status and the client-facing message.
// Missing fields are reported with the endpoint's own wording.
func translateError(endpoint string, err error) transportError {
	if errors.Is(err, application.ErrValidation) {
		message, ok := missingFieldsMessages[endpoint]
		if !ok {
			message = err.Error()
		}
		return transportError{
			Status: http.StatusBadRequest,
			Response: errorResponse{
				Code:    103,
				Message: message,
			},
		}
	} else if errors.Is(err, ErrBadRequest) {
		return transportError{
			Status: http.StatusBadRequest,
			Response: errorResponse{
				Code:    103,
				Message: err.Error(),
			},
		}
	} else if errors.Is(err, application.ErrInvalidCredentials) {
		return transportError{
			Status: http.StatusUnauthorized,
			Response: errorResponse{
				Code:    101,
				Message: msgInvalidCredentials,
			},
		}
	} else if errors.Is(err, application.ErrDuplicateUser) {
		return transportError{
			Status: http.StatusConflict,
			Response: errorResponse{
				Code:    102,
				Message: msgEmailRegistered,
			},
		}
	} else if errors.Is(err, ErrTooManyRequests) {
		return transportError{
			Status: http.StatusTooManyRequests,
			Response: errorResponse{
				Code:    104,
				Message: ErrTooManyRequests.Error(),
			},
		}
	} else {
		return transportError{
			Status: http.StatusInternalServerError,
			Response: errorResponse{
				Code:    100,
				Message: "unexpected error",
			},
		}
	}
}
