// Command smoke drives a running server through register, conversation,
// message, reply, edit and thread listing.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	if err := run(); err != nil {
		log.Printf("smoke: %v", err)
		os.Exit(1)
	}
}

type client struct {
	base  string
	http  *http.Client
	token string
}

func (c *client) call(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (c *client) register(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	creds := map[string]string{"username": username, "password": password}
	if err := c.call(ctx, http.MethodPost, "/api/register", creds, &out); err != nil {
		// Already registered by an earlier run.
		if err := c.call(ctx, http.MethodPost, "/api/login", creds, &out); err != nil {
			return err
		}
	}
	c.token = out.Token
	return nil
}

func (c *client) me(ctx context.Context) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.call(ctx, http.MethodGet, "/api/users/me", nil, &out)
	return out.ID, err
}

func run() error {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	suffix := flag.String("suffix", fmt.Sprint(time.Now().Unix()%100000), "username suffix")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	httpClient := &http.Client{Timeout: *timeout}
	alice := &client{base: *addr, http: httpClient}
	bob := &client{base: *addr, http: httpClient}

	if err := alice.register(ctx, "alice"+*suffix, "password123"); err != nil {
		return fmt.Errorf("register alice: %w", err)
	}
	if err := bob.register(ctx, "bob"+*suffix, "password123"); err != nil {
		return fmt.Errorf("register bob: %w", err)
	}
	bobID, err := bob.me(ctx)
	if err != nil {
		return fmt.Errorf("bob me: %w", err)
	}

	var conv struct {
		ID int64 `json:"id"`
	}
	if err := alice.call(ctx, http.MethodPost, "/api/conversations", map[string]any{"participant_ids": []int64{bobID}}, &conv); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	var root, reply struct {
		ID         int64  `json:"id"`
		ReceiverID *int64 `json:"receiver_id"`
	}
	path := fmt.Sprintf("/api/conversations/%d/messages", conv.ID)
	if err := alice.call(ctx, http.MethodPost, path, map[string]any{"body": "hello from smoke test"}, &root); err != nil {
		return fmt.Errorf("send root: %w", err)
	}
	if err := bob.call(ctx, http.MethodPost, path, map[string]any{"body": "reply", "parent_id": root.ID}, &reply); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	if err := alice.call(ctx, http.MethodPut, fmt.Sprintf("/api/messages/%d", root.ID), map[string]any{"body": "hello (edited)"}, nil); err != nil {
		return fmt.Errorf("edit root: %w", err)
	}

	var threads json.RawMessage
	if err := alice.call(ctx, http.MethodGet, fmt.Sprintf("/api/threads?conversation_id=%d", conv.ID), nil, &threads); err != nil {
		return fmt.Errorf("threads: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, threads, "", "  "); err != nil {
		return err
	}
	log.Printf("conversation %d threads:\n%s", conv.ID, pretty.String())
	return nil
}
