package handlers

import (
	"errors"
	"log"
	"net/http"

	"TODOLIST_BACK-END/internal/dto"
	"TODOLIST_BACK-END/internal/models"
	"TODOLIST_BACK-END/internal/password"
	"TODOLIST_BACK-END/internal/store"
	"TODOLIST_BACK-END/internal/utils"
)

// TokenIssuer creates access tokens for authenticated users
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	store  store.Store
	hasher password.Hasher
	tokens TokenIssuer
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(s store.Store, hasher password.Hasher, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{store: s, hasher: hasher, tokens: tokens}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account with username, email, and password
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration data"
// @Success 201 {object} dto.AuthResponse "User created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data or user already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		return // Error already handled by DecodeJSONBody
	}

	// Validate required fields
	if req.Username == "" || req.Email == "" || req.Password == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing required fields", "username, email and password are required")
		return
	}

	ctx := r.Context()

	// Check if user already exists
	if _, err := h.store.GetUserByUsername(ctx, req.Username); err == nil {
		writeDuplicateUser(w, store.ErrDuplicateUsername)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to create user", err.Error())
		return
	}
	if _, err := h.store.GetUserByEmail(ctx, req.Email); err == nil {
		writeDuplicateUser(w, store.ErrDuplicateEmail)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to create user", err.Error())
		return
	}

	// Hash password
	hashedPassword, err := h.hasher.Hash(req.Password)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to hash password", err.Error())
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		// A concurrent registration may win the race between the lookups and the insert
		if errors.Is(err, store.ErrDuplicateUsername) || errors.Is(err, store.ErrDuplicateEmail) {
			writeDuplicateUser(w, err)
			return
		}
		if errors.Is(err, store.ErrConstraintViolation) {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid user data", err.Error())
			return
		}
		log.Printf("register %q: %v", req.Username, err)
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to create user", err.Error())
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to generate token", err.Error())
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, dto.AuthResponse{
		Message:     "User created successfully",
		User:        toUserResponse(user),
		AccessToken: token,
	})
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with username and password
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := utils.DecodeJSONBody(w, r, &req); err != nil {
		return // Error already handled by DecodeJSONBody
	}

	// Validate required fields
	if req.Username == "" || req.Password == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing username or password", "")
		return
	}

	// Unknown user and wrong password get the same answer so usernames cannot be enumerated
	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) {
		writeInvalidCredentials(w)
		return
	}
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Login failed", err.Error())
		return
	}

	ok, err := h.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		log.Printf("login %q: verify password: %v", req.Username, err)
	}
	if !ok {
		writeInvalidCredentials(w)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to generate token", err.Error())
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.AuthResponse{
		Message:     "Login successful",
		User:        toUserResponse(user),
		AccessToken: token,
	})
}

func writeDuplicateUser(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrDuplicateEmail) {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Email already exists", "")
		return
	}
	utils.WriteErrorResponse(w, http.StatusBadRequest, "Username already exists", "")
}

func writeInvalidCredentials(w http.ResponseWriter) {
	utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid username or password", "")
}

func toUserResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: utils.FormatTimestamp(u.CreatedAt),
	}
}
