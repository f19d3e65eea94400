package commands

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"slackadder/pkg/adder"
	"slackadder/pkg/version"
)

var processStartTime = time.Now()

const usageHint = "Use `help` to see available commands."

// RegisterBuiltinCommands registers built-in commands.
func RegisterBuiltinCommands(registry *Registry, svc *adder.Service) error {
	builtins := []*Command{
		{
			Name:         "help",
			Description:  "Show available commands",
			Usage:        "help [command]",
			Handler:      helpHandler(registry),
			RequiresAuth: true,
		},
		{
			Name:         "list",
			Description:  "List the channel groups",
			Usage:        "list",
			Handler:      listHandler(svc),
			RequiresAuth: true,
		},
		{
			Name:         "add",
			Description:  "Join channels and invite a member into them",
			Usage:        "add @member [group|#channel|<#C123>]...",
			Handler:      addHandler(svc),
			RequiresAuth: true,
		},
		{
			Name:         "status",
			Description:  "Show bot status",
			Usage:        "status",
			Handler:      statusHandler,
			RequiresAuth: true,
		},
	}

	for _, cmd := range builtins {
		if err := registry.Register(cmd); err != nil {
			return fmt.Errorf("failed to register %s: %w", cmd.Name, err)
		}
	}

	return nil
}

// helpHandler creates a handler for the help command.
func helpHandler(registry *Registry) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		// If a specific command is requested, show detailed help
		if parts := strings.Fields(req.Args); len(parts) > 0 {
			if cmd, exists := registry.Get(parts[0]); exists {
				return Text(
					fmt.Sprintf("*%s* - %s", cmd.Name, cmd.Description),
					fmt.Sprintf("Usage: `%s`", cmd.Usage),
				), nil
			}
		}

		cmds := registry.List()
		if len(cmds) == 0 {
			return Text("No commands available."), nil
		}

		lines := []string{"*Available Commands*"}
		for _, cmd := range cmds {
			lines = append(lines, fmt.Sprintf("*%s* - %s", cmd.Name, compactDescription(cmd.Description, 72)))
		}
		lines = append(lines, strings.Split(adder.Usage, "\n")...)

		return Text(lines...), nil
	}
}

func compactDescription(desc string, limit int) string {
	desc = strings.Join(strings.Fields(strings.TrimSpace(desc)), " ")
	if limit <= 0 {
		limit = 72
	}
	runes := []rune(desc)
	if len(runes) <= limit {
		return desc
	}
	if limit <= 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

// listHandler shows the channel groups.
func listHandler(svc *adder.Service) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		if strings.TrimSpace(req.Args) != "" {
			return Text("The `list` command does not take any additional arguments."), nil
		}
		return CommandResponse{Report: svc.ListGroups()}, nil
	}
}

// addHandler reads the member and tokens from the first line. Any further
// lines, such as a pasted channel list, are passed as the payload.
func addHandler(svc *adder.Service) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		line, payload, _ := strings.Cut(req.Args, "\n")
		fields := strings.Fields(line)
		target := ""
		if len(fields) > 0 {
			target, fields = fields[0], fields[1:]
		}

		rep, err := svc.Add(ctx, adder.Request{
			Actor:      req.UserID,
			Target:     target,
			Tokens:     fields,
			Payload:    payload,
			Origin:     req.ChatID,
			Authorized: true,
		})
		return CommandResponse{Report: rep}, err
	}
}

// statusHandler handles the status command.
func statusHandler(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Text(
		"✅ *SlackAdder Status*",
		fmt.Sprintf("Channel: %s", req.Channel),
		"Status: 🟢 Online",
		fmt.Sprintf("Version: %s", version.GetVersion()),
		fmt.Sprintf("OS: %s/%s", runtime.GOOS, runtime.GOARCH),
		fmt.Sprintf("Go: %s", runtime.Version()),
		fmt.Sprintf("Uptime: %s", time.Since(processStartTime).Round(time.Second)),
		fmt.Sprintf("Memory: %.2f MB", float64(mem.Alloc)/1024.0/1024.0),
	), nil
}
