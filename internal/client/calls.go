package client

import (
	"context"

	"github.com/mcoot/hackstorm/internal/model"
	"github.com/mcoot/hackstorm/internal/protocol"
)

// Register creates an account and returns the server's message
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var resp protocol.Status
	err := c.Do(ctx, protocol.Register{Username: username, Password: password}, &resp)
	return resp.Message, err
}

// Login opens a session on this connection
func (c *Client) Login(ctx context.Context, username, password string) (*protocol.LoginResponse, error) {
	var resp protocol.LoginResponse
	if err := c.Do(ctx, protocol.Login{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Save replaces the session's stored game state, adding stats if given
func (c *Client) Save(ctx context.Context, state model.GameState, stats *model.Stats) error {
	return c.Do(ctx, protocol.Save{GameState: state, Stats: stats}, nil)
}

// Logout saves state and ends the session
func (c *Client) Logout(ctx context.Context, state model.GameState) (string, error) {
	var resp protocol.Status
	err := c.Do(ctx, protocol.Logout{GameState: state}, &resp)
	return resp.Message, err
}

func (c *Client) Online(ctx context.Context) (*protocol.OnlineResponse, error) {
	var resp protocol.OnlineResponse
	if err := c.Do(ctx, protocol.Online{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Chat(ctx context.Context, message string) error {
	return c.Do(ctx, protocol.Chat{Message: message}, nil)
}

func (c *Client) ChatHistory(ctx context.Context, count int) ([]model.ChatMessage, error) {
	var resp protocol.ChatHistoryResponse
	if err := c.Do(ctx, protocol.ChatHistory{Count: count}, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) Leaderboard(ctx context.Context, sortBy string, limit int) (*protocol.LeaderboardResponse, error) {
	var resp protocol.LeaderboardResponse
	if err := c.Do(ctx, protocol.Leaderboard{SortBy: sortBy, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Profile(ctx context.Context, target string) (*model.Profile, error) {
	var resp protocol.ProfileResponse
	if err := c.Do(ctx, protocol.Profile{Target: target}, &resp); err != nil {
		return nil, err
	}
	return &resp.Profile, nil
}

func (c *Client) Info(ctx context.Context) (*protocol.InfoResponse, error) {
	var resp protocol.InfoResponse
	if err := c.Do(ctx, protocol.Info{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Ping(ctx context.Context) (*protocol.PongResponse, error) {
	var resp protocol.PongResponse
	if err := c.Do(ctx, protocol.Ping{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Notify sends a direct notification to an online player
func (c *Client) Notify(ctx context.Context, target, message string) error {
	return c.Do(ctx, protocol.Notify{Target: target, Message: message}, nil)
}

// AddStats adds counter deltas and returns the new totals
func (c *Client) AddStats(ctx context.Context, delta model.Stats) (model.Stats, error) {
	var resp protocol.StatsResponse
	if err := c.Do(ctx, protocol.AddStats{Stats: delta}, &resp); err != nil {
		return model.Stats{}, err
	}
	return resp.Stats, nil
}
