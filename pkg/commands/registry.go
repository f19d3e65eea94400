package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Registry manages command registration and lookup.
type Registry struct {
	commands   map[string]*Command
	authorizer Authorizer
	mu         sync.RWMutex
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
	}
}

// SetAuthorizer installs the requester checks used for RequiresAuth.
func (r *Registry) SetAuthorizer(a Authorizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authorizer = a
}

// Register registers a new command.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}

	if cmd.Name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	// Normalize command name (lowercase, no /)
	cmd.Name = strings.ToLower(strings.TrimPrefix(cmd.Name, "/"))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("command %s already registered", cmd.Name)
	}

	r.commands[cmd.Name] = cmd
	return nil
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (*Command, bool) {
	// Normalize name
	name = strings.ToLower(strings.TrimPrefix(name, "/"))

	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, exists := r.commands[name]
	return cmd, exists
}

// List returns all registered commands sorted by name.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Name < cmds[j].Name
	})

	return cmds
}

// Parse splits text into a command name and its arguments. The first word
// is the command; a leading / is optional.
func (r *Registry) Parse(text string) (string, string) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "/")
	if text == "" {
		return "", ""
	}

	cmdName, args := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		cmdName, args = text[:i], strings.TrimSpace(text[i:])
	}
	cmdName = strings.ToLower(cmdName)

	return cmdName, args
}

// Execute runs the command named in req. An empty name runs help. The
// requester is vetted before the name is looked up. Unknown commands and
// refused requesters get a reply along with an error kept for logging.
func (r *Registry) Execute(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	name := req.Command
	if name == "" {
		name = "help"
	}

	cmd, exists := r.Get(name)

	r.mu.RLock()
	authorizer := r.authorizer
	r.mu.RUnlock()

	// Unknown names are vetted too.
	if (!exists || cmd.RequiresAuth) && authorizer != nil && req.Channel != ChannelCLI {
		if denied, err := authorizer.Authorize(ctx, req.UserID, req.ChatID); denied != nil {
			return CommandResponse{Report: denied}, err
		}
	}

	if !exists {
		return Text(fmt.Sprintf("Unknown command '%s'.", name), usageHint), fmt.Errorf("unknown command %q", name)
	}

	req.Command = cmd.Name
	return cmd.Handler(ctx, req)
}
