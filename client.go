package forgehand

import (
	"context"
	"sync"

	"github.com/forgehand/forgehand/permission"
)

// Client is a stateful conversation container that wraps an Agent.
// It maintains history across multiple Query calls.
type Client struct {
	agent   *Agent
	session *Session

	mu     sync.Mutex
	cancel context.CancelFunc // cancel for current Query
}

// NewClient creates a new Client with its own Agent configured by the given options.
func NewClient(opts ...AgentOption) *Client {
	agent := NewAgent(opts...)
	return &Client{
		agent:   agent,
		session: agent.NewSession(),
	}
}

// Query sends a prompt to the agent within the client's ongoing session.
// The conversation history is maintained across calls.
func (c *Client) Query(ctx context.Context, prompt string) *AgentStream {
	c.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	return c.agent.RunWithSession(ctx, c.session, prompt)
}

// Interrupt cancels the currently running Query, if any. The session is
// preserved; the next Query continues the conversation.
func (c *Client) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Fork creates a new Client that shares the same Agent but has a cloned session.
func (c *Client) Fork() *Client {
	c.mu.Lock()
	cloned := c.session.Clone()
	c.mu.Unlock()

	return &Client{
		agent:   c.agent,
		session: cloned,
	}
}

// SetModel updates the agent's model for subsequent queries.
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agent.opts.model = model
}

// SetPermissionMode updates the permission mode for subsequent queries.
func (c *Client) SetPermissionMode(mode permission.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agent.opts.permissionMode = mode
}

// Session returns the client's current session.
func (c *Client) Session() *Session {
	return c.session
}

// Agent returns the underlying Agent.
func (c *Client) Agent() *Agent {
	return c.agent
}
