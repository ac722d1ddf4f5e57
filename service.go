package main

import (
	"fmt"

	"github.com/takama/daemon"
)

const (
	// name of the service
	serviceName        = "baroserver"
	serviceDescription = "BMP180 temperature and pressure server"

	serviceUsage = "Usage: baroserver [options] install | remove | start | stop | status"
)

var serviceCommands = map[string]bool{
	"install": true,
	"remove":  true,
	"start":   true,
	"stop":    true,
	"status":  true,
}

// manageService runs a service management command. args are passed to the
// installed service.
func manageService(command string, args []string) (string, error) {
	if !serviceCommands[command] {
		return serviceUsage, fmt.Errorf("unknown command %q", command)
	}
	srv, err := daemon.New(serviceName, serviceDescription, daemon.SystemDaemon)
	if err != nil {
		return "", err
	}
	switch command {
	case "install":
		return srv.Install(args...)
	case "remove":
		return srv.Remove()
	case "start":
		return srv.Start()
	case "stop":
		return srv.Stop()
	default:
		return srv.Status()
	}
}

// serviceArgs drops the command from argv, leaving the options the service
// should be started with. The command is the last occurrence, since an
// earlier one can be an option value.
func serviceArgs(argv []string, command string) []string {
	out := make([]string, 0, len(argv))
	for i := len(argv) - 1; i >= 0; i-- {
		if argv[i] == command {
			out = append(out, argv[:i]...)
			return append(out, argv[i+1:]...)
		}
	}
	return append(out, argv...)
}
