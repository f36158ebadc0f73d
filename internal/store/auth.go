package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"workb-agent/internal/apiclient"
	"workb-agent/internal/broadcast"
	"workb-agent/internal/model"
	"workb-agent/internal/storage"
)

// Session is the realtime surface the auth store drives: the session is
// established after login and torn down on logout.
type Session interface {
	Realtime
	Connect(ctx context.Context) bool
	Disconnect()
	JoinWorkspace(workspaceID string)
}

// AuthState is the auth store's broadcast value.
type AuthState struct {
	User            *model.User `json:"user"`
	WorkspaceID     string      `json:"workspaceId"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	IsLoading       bool        `json:"isLoading"`
}

// Auth owns the credential lifecycle: login, restore on startup, logout.
type Auth struct {
	api     *apiclient.Client
	storage *storage.Storage
	session Session
	demo    bool
	hub     *broadcast.Hub[AuthState]
}

func NewAuth(api *apiclient.Client, store *storage.Storage, session Session, demo bool) *Auth {
	return &Auth{
		api:     api,
		storage: store,
		session: session,
		demo:    demo,
		hub:     broadcast.NewHub(AuthState{}, func(a, b AuthState) bool { return false }),
	}
}

func (a *Auth) Snapshot() AuthState {
	return a.hub.Snapshot()
}

func (a *Auth) Subscribe(fn func(AuthState)) (AuthState, func()) {
	return a.hub.Subscribe(fn)
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login exchanges credentials for a token, persists the session, and brings
// the realtime connection up.
func (a *Auth) Login(ctx context.Context, email, password string) error {
	a.hub.Apply(func(prev AuthState) AuthState {
		prev.IsLoading = true
		return prev
	})

	var resp loginResponse
	if a.demo {
		resp = loginResponse{
			Token: "demo-token",
			User: &model.User{
				ID:          "demo-user",
				Email:       email,
				DisplayName: "Demo User",
				Role:        model.RoleMember,
				WorkspaceID: "demo-workspace",
			},
		}
		log.Println("auth: demo mode, fabricated local session")
	} else {
		body := map[string]string{"email": email, "password": password}
		if err := a.api.Post(ctx, "/auth/login", body, &resp); err != nil {
			a.hub.Apply(func(prev AuthState) AuthState {
				prev.IsLoading = false
				return prev
			})
			return fmt.Errorf("login failed: %w", err)
		}
	}

	if err := a.storage.Set(storage.KeyAuthToken, resp.Token); err != nil {
		return err
	}
	if err := a.storage.SetUser(resp.User); err != nil {
		return err
	}
	if resp.User.WorkspaceID != "" {
		if err := a.storage.Set(storage.KeyWorkspaceID, resp.User.WorkspaceID); err != nil {
			return err
		}
	}

	a.hub.Apply(func(prev AuthState) AuthState {
		return AuthState{
			User:            resp.User,
			WorkspaceID:     resp.User.WorkspaceID,
			IsAuthenticated: true,
		}
	})
	a.connectRealtime(ctx, resp.User.WorkspaceID)
	log.Printf("auth: logged in as %s", resp.User.Email)
	return nil
}

// CheckAuth restores a persisted session on startup. Returns whether a valid
// session was found. Corrupted persisted state propagates as an error.
func (a *Auth) CheckAuth(ctx context.Context) (bool, error) {
	token := a.storage.Token()
	user, err := a.storage.User()
	if err != nil {
		return false, err
	}
	if token == "" || user == nil {
		return false, nil
	}

	workspaceID, err := a.storage.Get(storage.KeyWorkspaceID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	a.hub.Apply(func(prev AuthState) AuthState {
		return AuthState{
			User:            user,
			WorkspaceID:     workspaceID,
			IsAuthenticated: true,
		}
	})
	a.connectRealtime(ctx, workspaceID)
	log.Printf("auth: restored session for %s", user.Email)
	return true, nil
}

// Logout tears the session down: realtime first, then credentials.
func (a *Auth) Logout(ctx context.Context) error {
	if a.session != nil {
		a.session.Disconnect()
	}
	if err := a.storage.ClearCredentials(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	a.hub.Apply(func(prev AuthState) AuthState {
		return AuthState{}
	})
	log.Println("auth: logged out")
	return nil
}

func (a *Auth) connectRealtime(ctx context.Context, workspaceID string) {
	if a.session == nil {
		return
	}
	if !a.session.Connect(ctx) {
		log.Println("auth: realtime connection unavailable, continuing offline")
		return
	}
	if workspaceID != "" {
		a.session.JoinWorkspace(workspaceID)
	}
}
