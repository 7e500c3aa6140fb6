// Package fakebackend implements the marketplace REST API over an in-memory
// or MongoDB repository. cmd/devserver runs it for local development and the
// client tests run against it.
package fakebackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultMaxUpload = 10 << 20

type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	MaxUploadBytes int64
	Photos         PhotoStore
	Events         EventPublisher
	Mailer         Mailer
	Logger         *logger.Logger
}

type Server struct {
	store     Repository
	tokens    *TokenIssuer
	photos    PhotoStore
	events    EventPublisher
	mailer    Mailer
	maxUpload int64
	logger    *logger.Logger
}

func New(store Repository, opts Options) *Server {
	s := &Server{
		store:     store,
		tokens:    NewTokenIssuer(opts.JWTSecret, opts.TokenTTL),
		photos:    opts.Photos,
		events:    opts.Events,
		mailer:    opts.Mailer,
		maxUpload: opts.MaxUploadBytes,
		logger:    opts.Logger,
	}
	if s.photos == nil {
		s.photos = NewMemoryPhotoStore()
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.mailer == nil {
		s.mailer = nopMailer{}
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	s.logger = s.logger.Named("FakeBackend")
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.authenticate)

	r.Get("/api/listings", s.handleSearchListings)
	r.Get("/api/listings/{id}", s.handleGetListing)
	r.Post("/api/login", s.handleLogin)
	r.Post("/api/register", s.handleRegister)
	r.Post("/api/logout", s.handleLogout)
	r.Get(UploadsPrefix+"*", s.handleGetPhoto)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/api/listings", s.handleCreateListing)
		r.Get("/api/me", s.handleMe)
		r.Get("/api/profile/{userId}", s.handleUserListings)
		r.Delete("/api/profile/{userId}/{listingId}", s.handleDeleteListing)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("client_request_id", r.Header.Get("X-Request-ID")),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseForm accepts multipart and urlencoded bodies.
func (s *Server) parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(s.maxUpload)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func (s *Server) publish(ctx context.Context, subject string, data any) {
	if err := s.events.Publish(ctx, subject, data); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Erreur interne")
}

// notify logs a failed email; it never fails the request.
func (s *Server) notify(err error) {
	if err != nil {
		s.logger.Warn("Failed to send notification email", zap.Error(err))
	}
}

func parseSearchParams(r *http.Request) (domain.ListingSearchParams, error) {
	q := r.URL.Query()
	var p domain.ListingSearchParams
	if q.Has("query") {
		p.Query = domain.String(q.Get("query"))
	}
	if q.Has("condition") {
		p.Condition = domain.String(q.Get("condition"))
	}
	for name, dst := range map[string]**float64{"minPrice": &p.MinPrice, "maxPrice": &p.MaxPrice} {
		if !q.Has(name) {
			continue
		}
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			return p, err
		}
		*dst = domain.Float(v)
	}
	return p, nil
}

func (s *Server) handleSearchListings(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Paramètre de prix invalide")
		return
	}
	listings, err := s.store.Search(r.Context(), params)
	if err != nil {
		s.internalError(w, "Failed to search listings", err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.store.Listing(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrListingNotFound) {
		writeError(w, http.StatusNotFound, "Annonce introuvable")
		return
	}
	if err != nil {
		s.internalError(w, "Failed to load listing", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	if err := s.parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "Formulaire invalide")
		return
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("price")), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Le prix doit être un nombre")
		return
	}
	in := domain.NewListing{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       price,
		Condition:   r.FormValue("condition"),
	}

	var files [][]byte
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Image illisible")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "Image illisible")
				return
			}
			files = append(files, data)
			in.Images = append(in.Images, domain.ImageFile{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        bytes.NewReader(data),
			})
		}
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listing := domain.Listing{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Condition:   in.Condition,
	}
	for i, img := range in.Images {
		key, err := s.photos.Save(r.Context(), img.FileName(), img.MIMEType(), files[i])
		if err != nil {
			s.logger.Error("Failed to store photo", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Erreur lors de l'enregistrement des images")
			return
		}
		listing.Images = append(listing.Images, UploadsPrefix+key)
	}

	created, err := s.store.AddListing(r.Context(), listing)
	if err != nil {
		s.internalError(w, "Failed to save listing", err)
		return
	}
	s.publish(r.Context(), ListingCreatedSubject, created)
	if owner, err := s.store.User(r.Context(), userID); err == nil {
		s.notify(s.mailer.SendListingCreated(r.Context(), owner.Email, created))
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	rc, contentType, err := s.photos.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrPhotoNotFound) {
			writeError(w, http.StatusNotFound, "Image introuvable")
			return
		}
		s.logger.Error("Failed to read photo", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur lors de la lecture de l'image")
		return
	}
	defer rc.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	_, _ = io.Copy(w, rc)
}

func (s *Server) issueSession(w http.ResponseWriter, user domain.User, status int) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erreur interne")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, domain.AuthResponse{User: user, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "Formulaire invalide")
		return
	}
	user, err := s.store.Authenticate(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if errors.Is(err, ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		s.internalError(w, "Failed to authenticate user", err)
		return
	}
	s.issueSession(w, user, http.StatusOK)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "Formulaire invalide")
		return
	}
	email, password, pseudo := r.FormValue("email"), r.FormValue("password"), r.FormValue("pseudo")
	if strings.TrimSpace(email) == "" || password == "" || strings.TrimSpace(pseudo) == "" {
		writeError(w, http.StatusBadRequest, "Email, mot de passe et pseudo sont requis")
		return
	}
	user, err := s.store.Register(r.Context(), email, password, pseudo)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusConflict, "Cet email est déjà utilisé")
			return
		}
		s.internalError(w, "Failed to register user", err)
		return
	}
	s.publish(r.Context(), UserRegisteredSubject, UserRegisteredEvent{ID: user.ID, Email: user.Email, Pseudo: user.Pseudo})
	s.notify(s.mailer.SendWelcome(r.Context(), user))
	s.issueSession(w, user, http.StatusCreated)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	user, err := s.store.User(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Non authentifié")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserListings(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	if chi.URLParam(r, "userId") != userID {
		writeError(w, http.StatusForbidden, "Accès refusé")
		return
	}
	listings, err := s.store.ListingsOf(r.Context(), userID)
	if err != nil {
		s.internalError(w, "Failed to load user listings", err)
		return
	}
	writeJSON(w, http.StatusOK, domain.UserListings{Listings: listings})
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	if chi.URLParam(r, "userId") != userID {
		writeError(w, http.StatusForbidden, "Accès refusé")
		return
	}
	listingID := chi.URLParam(r, "listingId")
	switch err := s.store.DeleteListing(r.Context(), userID, listingID); {
	case errors.Is(err, domain.ErrListingNotFound):
		writeError(w, http.StatusNotFound, "Annonce introuvable")
		return
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "Accès refusé")
		return
	case err != nil:
		s.internalError(w, "Failed to delete listing", err)
		return
	}
	s.publish(r.Context(), ListingDeletedSubject, ListingDeletedEvent{ID: listingID, UserID: userID})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
