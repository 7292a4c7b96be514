package admin

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/crypto/blowfish"

	"github.com/juce/fiveserver/internal/model"
	"github.com/juce/fiveserver/internal/store"
)

// validate is the shared struct validator, constructed once the way the
// teacher constructs its package-level validator
// (evr_runtime_discord_registry.go: "validator.New(validator.WithRequiredStructEnabled())").
var validate = validator.New(validator.WithRequiredStructEnabled())

// registrationRequest is the posted form body of the HTTP registration
// flow (register.py's RegistrationResource.render_POST): a serial number,
// a desired username, a hex-encoded hash, and an optional nonce that
// re-binds an existing locked account instead of creating a new one.
type registrationRequest struct {
	Serial   string `validate:"required"`
	Username string `validate:"required"`
	HashHex  string `validate:"required,hexadecimal"`
	Nonce    string
}

// transformHash Blowfish-ECB-encrypts the posted hash with the admin
// secret key, exactly as register.py does:
// "hash = b2a_hex(cipher.encrypt(a2b_hex(hash)))". Blowfish's 8-byte block
// size means the decoded hash must be a multiple of 8 bytes; the legacy
// client always posts a 16-byte MD5-style digest, so this never needs
// padding.
func (a *Admin) transformHash(hashHex string) (string, error) {
	raw, err := hex.DecodeString(hashHex)
	if err != nil {
		return "", fmt.Errorf("admin: decode hash: %w", err)
	}
	if len(raw)%blowfish.BlockSize != 0 {
		return "", fmt.Errorf("admin: hash length %d not a multiple of block size", len(raw))
	}

	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i += blowfish.BlockSize {
		a.cipher.Encrypt(out[i:i+blowfish.BlockSize], raw[i:i+blowfish.BlockSize])
	}
	return hex.EncodeToString(out), nil
}

func (a *Admin) handleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		writeXMLResult(w, http.StatusBadRequest, "ERROR: malformed form body")
		return
	}

	req := registrationRequest{
		Serial:   r.FormValue("serial"),
		Username: r.FormValue("user"),
		HashHex:  r.FormValue("hash"),
		Nonce:    r.FormValue("nonce"),
	}
	if err := validate.Struct(req); err != nil {
		writeXMLResult(w, http.StatusBadRequest, "ERROR: missing or invalid parameters")
		return
	}

	if a.banList.Contains(clientIP(r)) {
		writeXMLResult(w, http.StatusForbidden, "ERROR: Cannot register: your IP is banned")
		return
	}

	hash, err := a.transformHash(req.HashHex)
	if err != nil {
		a.logger.Warn("registration hash transform failed", zap.Error(err))
		writeXMLResult(w, http.StatusInternalServerError, "ERROR: Unable to register: server error")
		return
	}

	ctx := r.Context()
	if req.Nonce == "" {
		a.createUser(ctx, w, req, hash)
		return
	}
	a.modifyUser(ctx, w, req, hash)
}

// createUser implements register.py's "create new" branch: reject if the
// username is already taken, otherwise store a fresh, unlocked user.
func (a *Admin) createUser(ctx context.Context, w http.ResponseWriter, req registrationRequest, hash string) {
	if _, err := a.store.Users().FindByUsername(ctx, req.Username); err == nil {
		writeXMLResult(w, http.StatusConflict, "ERROR: Cannot register: username taken")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeXMLResult(w, http.StatusInternalServerError, "ERROR: Unable to register: server error")
		return
	}

	u := &model.User{Username: req.Username, Serial: req.Serial, Hash: hash}
	if err := a.store.Users().Store(ctx, u); err != nil {
		a.logger.Warn("registration store failed", zap.Error(err))
		writeXMLResult(w, http.StatusInternalServerError, "ERROR: Unable to register: server error")
		return
	}
	writeXMLResult(w, http.StatusOK, "SUCCESS: Registration complete")
}

// modifyUser implements register.py's "modify existing" branch: the nonce
// must resolve to a locked account (set by the admin /userlock endpoint),
// and re-registration clears the nonce as it re-binds the account.
func (a *Admin) modifyUser(ctx context.Context, w http.ResponseWriter, req registrationRequest, hash string) {
	u, err := a.store.Users().FindByNonce(ctx, req.Nonce)
	if err != nil {
		writeXMLResult(w, http.StatusNotFound, "ERROR: Cannot modify user: invalid nonce")
		return
	}

	u.Username = req.Username
	u.Serial = req.Serial
	u.Hash = hash
	u.ResetNonce = ""
	if err := a.store.Users().Store(ctx, u); err != nil {
		a.logger.Warn("registration modify failed", zap.Error(err))
		writeXMLResult(w, http.StatusInternalServerError, "ERROR: Unable to register: server error")
		return
	}
	writeXMLResult(w, http.StatusOK, "SUCCESS: Registration complete")
}

func writeXMLResult(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(code)
	fmt.Fprintf(w, "%s<result text=%q/>", xmlHeader, message)
}
