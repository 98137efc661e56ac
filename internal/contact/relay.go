package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sendPath = "/send"

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrRelayFailed  = errors.New("mail relay rejected message")
)

type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate trims every field in place and checks the required ones.
func (m *Message) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Body = strings.TrimSpace(m.Body)

	switch {
	case m.Name == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case m.Email == "":
		return fmt.Errorf("%w: email", ErrMissingField)
	case m.Body == "":
		return fmt.Errorf("%w: body", ErrMissingField)
	}
	addr, err := mail.ParseAddress(m.Email)
	if err != nil || addr.Address != m.Email {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, m.Email)
	}
	return nil
}

type outbound struct {
	ID string `json:"id"`
	Message
}

type Relay struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

func NewRelay(host string, port int, httpClient *http.Client, timeout time.Duration) *Relay {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Relay{
		endpoint:   "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + sendPath,
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Send validates msg and forwards it to the mail relay. It returns the id
// the message was sent under.
func (r *Relay) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	body, err := json.Marshal(outbound{ID: id, Message: msg})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: post to mail relay: %w", ErrRelayFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrRelayFailed, resp.StatusCode)
	}

	zerolog.Ctx(ctx).Info().Str("message_id", id).Msg("contact message relayed")
	return id, nil
}
