package main

import (
	"fmt"
	"os"
	"strings"

	"dinehub/cmd/migrate"
	"dinehub/cmd/orderservice"
	"dinehub/cmd/panelmonitor"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Extract mode from arguments
	var mode string
	var serviceArgs []string

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		if strings.HasPrefix(arg, "--mode=") {
			mode = strings.TrimPrefix(arg, "--mode=")
		} else if arg == "--mode" && i+1 < len(os.Args) {
			mode = os.Args[i+1]
			i++ // skip the next argument
		} else {
			serviceArgs = append(serviceArgs, arg)
		}
	}

	if mode == "" {
		printUsage()
		os.Exit(1)
	}

	// Set the service-specific arguments
	os.Args = append([]string{os.Args[0]}, serviceArgs...)

	switch mode {
	case "order-service":
		orderservice.Main()
	case "panel-monitor":
		panelmonitor.Main()
	case "migrate":
		migrate.Main()
	default:
		fmt.Printf("Invalid mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: dinehub --mode=<service-mode> [service-specific-flags]")
	fmt.Println("Available modes:")
	fmt.Println("  order-service --port=3000 --config=config/config.yaml")
	fmt.Println("  panel-monitor --addr=localhost:3000 --role=waiter --client-id=<client_id>")
	fmt.Println("  migrate --direction=up --migrations=migrations")
}
