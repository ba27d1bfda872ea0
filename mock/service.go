package mock

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/cid/transport"
)

// Recorded is a request received by the IdentityService.
type Recorded struct {
	Path    string
	Key     string
	Header  http.Header
	Payload transport.Request
}

// IdentityService simulates the identity assignment service. Configure the
// exported fields before serving requests.
type IdentityService struct {
	Issuer string
	Secret []byte
	// URL is the externally visible base URL, used to build alternate endpoints.
	URL string
	// RedirectToAlternate makes the primary endpoint answer with an alternateUrl.
	RedirectToAlternate bool
	OptOutScopes        map[string]bool
	NotFoundScopes      map[string]bool
	// FailStatus, when set, is returned for every request with FailMessage.
	FailStatus  int
	FailMessage string
	// Delay holds every response, until the client goes away.
	Delay time.Duration

	mu       sync.Mutex
	requests []Recorded
}

// Requests returns the requests received so far.
func (s *IdentityService) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// ClientID returns the identifier the service assigns to device in scope.
func (s *IdentityService) ClientID(device, scope string) string {
	return "amp-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(s.Issuer+"|"+device+"|"+scope)).String()
}

func (s *IdentityService) serveClientID(w http.ResponseWriter, r *http.Request, primary bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "API key is required")
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request")
		return
	}
	var payload transport.Request
	if err = json.Unmarshal(data, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, Recorded{Path: r.URL.Path, Key: key, Header: r.Header.Clone(), Payload: payload})
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if s.FailStatus != 0 {
		writeError(w, s.FailStatus, s.FailMessage)
		return
	}
	if primary && s.RedirectToAlternate {
		writeJSON(w, http.StatusOK, &transport.Response{AlternateURL: s.URL + AlternatePath})
		return
	}
	if payload.OriginScope == "" {
		writeError(w, http.StatusBadRequest, "originScope is required")
		return
	}
	if s.OptOutScopes[payload.OriginScope] {
		writeJSON(w, http.StatusOK, &transport.Response{OptOut: true})
		return
	}
	if s.NotFoundScopes[payload.OriginScope] {
		writeJSON(w, http.StatusOK, &transport.Response{})
		return
	}
	response := &transport.Response{}
	device := ""
	if payload.SecurityToken != "" {
		if device, err = s.device(payload.SecurityToken); err != nil {
			writeError(w, http.StatusBadRequest, "invalid security token")
			return
		}
	} else {
		device = uuid.NewString()
		if response.SecurityToken, err = s.createSecurityToken(device); err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
	}
	response.ClientID = s.ClientID(device, payload.OriginScope)
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, &transport.Response{Error: &transport.ResponseError{Message: message}})
}

// NewIdentityService creates a service with a random signing secret.
func NewIdentityService() *IdentityService {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return &IdentityService{
		Issuer:         "https://cid.mock",
		Secret:         secret,
		OptOutScopes:   map[string]bool{},
		NotFoundScopes: map[string]bool{},
	}
}

// Server is an IdentityService listening on a local httptest server.
type Server struct {
	*httptest.Server
	Service *IdentityService
}

// Endpoint returns the primary endpoint URL.
func (s *Server) Endpoint() string {
	return s.URL + Path
}

// NewServer starts a test server for service (a new one when nil).
func NewServer(service *IdentityService) *Server {
	if service == nil {
		service = NewIdentityService()
	}
	server := httptest.NewServer(&Handler{Service: service})
	service.URL = server.URL
	return &Server{Server: server, Service: service}
}
