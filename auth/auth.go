package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"tiffin/db"
	"tiffin/globals"
	"tiffin/middleware"
	"tiffin/models"
	"tiffin/utils"
	"tiffin/wallet"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenTTL = 24 * time.Hour

// Handler owns signup and login. Registration is the only caller of
// CreateWallet: each party gets its wallet exactly once, here.
type Handler struct {
	wallets *wallet.Service
}

func NewHandler(wallets *wallet.Service) *Handler {
	return &Handler{wallets: wallets}
}

type registerRequest struct {
	Kind     models.WalletKind `json:"kind"`
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Password string            `json:"password"`
}

// Register creates the owning party and provisions its wallet.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !req.Kind.Valid() || req.Username == "" || len(req.Password) < 8 {
		utils.RespondWithError(w, http.StatusBadRequest, "kind, username and a password of at least 8 characters are required")
		return
	}

	ctx := r.Context()
	if err := db.AccountsCollection.FindOne(ctx, bson.M{"username": req.Username}).Err(); err == nil {
		utils.RespondWithError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	account := models.Account{
		ID:           utils.GetUUID(),
		Kind:         req.Kind,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if _, err := db.AccountsCollection.InsertOne(ctx, account); err != nil {
		// The unique username index decides races the FindOne above misses.
		if isDuplicateUsername(err) {
			utils.RespondWithError(w, http.StatusConflict, "username already taken")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if _, err := h.wallets.CreateWallet(ctx, account.Kind, account.ID); err != nil && !errors.Is(err, wallet.ErrWalletExists) {
		// Roll the account back so a retry can provision both together.
		_, _ = db.AccountsCollection.DeleteOne(ctx, bson.M{"_id": account.ID})
		log.Printf("wallet provisioning failed for %s: %v", account.ID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"id":       account.ID,
		"kind":     account.Kind,
		"username": account.Username,
	})
}

// isDuplicateUsername reports whether an account insert lost to a concurrent
// registration of the same username.
func isDuplicateUsername(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a kind-scoped JWT.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	var account models.Account
	if err := db.AccountsCollection.FindOne(r.Context(), bson.M{"username": req.Username}).Decode(&account); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	now := time.Now()
	claims := middleware.Claims{
		Username: account.Username,
		UserID:   account.ID,
		Role:     []string{string(account.Kind)},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	_, _ = db.AccountsCollection.UpdateOne(r.Context(),
		bson.M{"_id": account.ID},
		bson.M{"$set": bson.M{"last_login": now}},
	)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"token":  token,
		"userid": account.ID,
		"kind":   account.Kind,
	})
}
