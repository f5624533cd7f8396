// cmd/mildserver/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/mild/app"
	"github.com/dalemusser/mild/internal/app/bootstrap"
	"github.com/dalemusser/mild/toolkit/service"
	"github.com/spf13/pflag"
)

const description = "mild database registry service"

// Usage:
//
//	mildserver [flags]                      run in the foreground
//	mildserver service <action> [flags]     install|uninstall|start|stop|restart
//
// Flags after "service <action>" are stored with the installed service and
// passed back to it on every start.
func main() {
	if len(os.Args) > 1 && os.Args[1] == "service" {
		if err := control(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if service.Interactive() {
		if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	prog := &service.Program[bootstrap.AppConfig, bootstrap.DBDeps]{Hooks: bootstrap.Hooks}
	svc, err := service.New(prog, serviceName(os.Args[1:]), description, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func control(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: mildserver service <%v> [flags]", service.Actions)
	}
	action, rest := args[0], args[1:]
	prog := &service.Program[bootstrap.AppConfig, bootstrap.DBDeps]{Hooks: bootstrap.Hooks}
	svc, err := service.New(prog, serviceName(rest), description, rest)
	if err != nil {
		return err
	}
	if err := service.Control(svc, action); err != nil {
		return err
	}
	fmt.Printf("service %s: ok\n", action)
	return nil
}

// serviceName picks --service_name out of args without touching the other
// flags, which the app parses later.
func serviceName(args []string) string {
	fs := pflag.NewFlagSet("service", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	name := fs.String("service_name", "", "")
	_ = fs.Parse(args)
	if *name != "" {
		return *name
	}
	if env := os.Getenv("MILD_SERVICE_NAME"); env != "" {
		return env
	}
	return "mild"
}
