package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"slackadder/pkg/config"
)

const serviceName = "slackadder"

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage slackadder as a system service",
	Long: `Install and control slackadder as a system service:
- Linux: systemd
- macOS: launchd
- Windows: Windows Service Manager

The installed service runs "slackadder run" with the current --config.
Most subcommands require administrator/root privileges.`,
}

func init() {
	actions := []struct {
		use, short string
		run        func() error
	}{
		{"install", "Install the system service", InstallService},
		{"uninstall", "Uninstall the system service", UninstallService},
		{"start", "Start the system service", StartService},
		{"stop", "Stop the system service", StopService},
		{"restart", "Restart the system service", RestartService},
		{"status", "Show the system service status", StatusService},
	}

	for _, action := range actions {
		run := action.run
		serviceCmd.AddCommand(&cobra.Command{
			Use:   action.use,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run()
			},
		})
	}
}

// BotService implements service.Interface.
type BotService struct {
	app    *fx.App
	logger service.Logger
}

// NewBotService creates a new bot service.
func NewBotService() *BotService {
	return &BotService{}
}

// Start implements service.Interface.Start.
func (s *BotService) Start(svc service.Service) error {
	if s.logger != nil {
		_ = s.logger.Info("Starting slackadder service")
	}

	s.app = newBotApp()
	if err := s.app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.app.StartTimeout())
	defer cancel()
	return s.app.Start(ctx)
}

// Stop implements service.Interface.Stop.
func (s *BotService) Stop(svc service.Service) error {
	if s.logger != nil {
		_ = s.logger.Info("Stopping slackadder service")
	}
	if s.app == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.app.StopTimeout())
	defer cancel()

	if err := s.app.Stop(ctx); err != nil {
		if s.logger != nil {
			_ = s.logger.Errorf("Error stopping service: %v", err)
		}
		return err
	}
	return nil
}

// serviceConfigPath is the config file the installed service should use.
func serviceConfigPath() string {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.ConfigPathEnv))
	}
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// ServiceConfig returns the service configuration.
func ServiceConfig() *service.Config {
	args := []string{"run"}
	if path := serviceConfigPath(); path != "" {
		args = append([]string{"-c", path}, args...)
	}

	return &service.Config{
		Name:        serviceName,
		DisplayName: "SlackAdder",
		Description: "Slack bot that joins channel groups and invites a member into them",
		Arguments:   args,
	}
}

func newService() (service.Service, *BotService, error) {
	prg := NewBotService()
	s, err := service.New(prg, ServiceConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("creating service: %w", err)
	}
	return s, prg, nil
}

// InstallService installs the bot as a system service.
func InstallService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Install(); err != nil {
		return privileged("installing service", err)
	}

	fmt.Println("Service installed successfully!")
	fmt.Println("Use 'slackadder service start' to start the service")
	return nil
}

// UninstallService uninstalls the system service.
func UninstallService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Uninstall(); err != nil {
		return privileged("uninstalling service", err)
	}

	fmt.Println("Service uninstalled successfully!")
	return nil
}

// StartService starts the system service.
func StartService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return privileged("starting service", err)
	}

	fmt.Println("Service started successfully!")
	return nil
}

// StopService stops the system service.
func StopService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Stop(); err != nil {
		return privileged("stopping service", err)
	}

	fmt.Println("Service stopped successfully!")
	return nil
}

// RestartService restarts the system service.
func RestartService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}
	if err := s.Restart(); err != nil {
		return privileged("restarting service", err)
	}

	fmt.Println("Service restarted successfully!")
	return nil
}

// StatusService prints the status of the system service.
func StatusService() error {
	s, _, err := newService()
	if err != nil {
		return err
	}

	status, err := s.Status()
	if err != nil {
		return fmt.Errorf("getting service status: %w", err)
	}

	fmt.Printf("Service Status: %s\n", statusText(status))
	return nil
}

func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "Running"
	case service.StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// RunService runs under the service manager.
func RunService() error {
	s, prg, err := newService()
	if err != nil {
		return err
	}

	logger, err := s.Logger(nil)
	if err != nil {
		return fmt.Errorf("creating service logger: %w", err)
	}
	prg.logger = logger

	if err := s.Run(); err != nil {
		_ = logger.Error(err)
		return err
	}
	return nil
}

func privileged(action string, err error) error {
	return fmt.Errorf("%s: %w (system services need sudo on Linux/macOS or Administrator on Windows)", action, err)
}
