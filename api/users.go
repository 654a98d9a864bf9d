package api

import (
	"net/http"

	"github.com/poiesic/bidgrid/auth"
	"github.com/poiesic/bidgrid/core"
)

type sessionData struct {
	User         *core.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) error {
	reg, err := readJSON[core.Registration](r)
	if err != nil {
		return err
	}
	user, err := s.deps.Auth.Register(r.Context(), reg)
	if err != nil {
		return err
	}
	respond(w, http.StatusCreated, user, "User registered successfully")
	return nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	creds, err := readJSON[core.Credentials](r)
	if err != nil {
		return err
	}
	user, tokens, err := s.deps.Auth.Login(r.Context(), creds)
	if err != nil {
		return err
	}
	s.deps.Auth.SetTokenCookies(w, tokens)
	respond(w, http.StatusOK, sessionData{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "User logged in successfully")
	return nil
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) error {
	if err := s.deps.Auth.Logout(r.Context(), requestUser(r).Id); err != nil {
		return err
	}
	s.deps.Auth.ClearTokenCookies(w)
	respond(w, http.StatusOK, struct{}{}, "User logged out")
	return nil
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) error {
	token := ""
	if c, err := r.Cookie(auth.RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		body, err := readJSON[struct {
			RefreshToken string `json:"refreshToken"`
		}](r)
		if err != nil {
			return err
		}
		token = body.RefreshToken
	}

	user, tokens, err := s.deps.Auth.Refresh(r.Context(), token)
	if err != nil {
		return err
	}
	s.deps.Auth.SetTokenCookies(w, tokens)
	respond(w, http.StatusOK, sessionData{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
	return nil
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) error {
	respond(w, http.StatusOK, requestUser(r), "Current user fetched successfully")
	return nil
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) error {
	patch, err := readJSON[core.AccountPatch](r)
	if err != nil {
		return err
	}
	user, err := s.deps.Auth.UpdateAccount(r.Context(), requestUser(r).Id, patch)
	if err != nil {
		return err
	}
	respond(w, http.StatusOK, user, "Account details updated successfully")
	return nil
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) error {
	change, err := readJSON[core.PasswordChange](r)
	if err != nil {
		return err
	}
	if err := s.deps.Auth.ChangePassword(r.Context(), requestUser(r).Id, change); err != nil {
		return err
	}
	respond(w, http.StatusOK, struct{}{}, "Password changed successfully")
	return nil
}
