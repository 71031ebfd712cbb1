// Package ui provides colorized console output for server startup.
package ui

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/polychat/polychat-api/internal/domain"
)

var (
	infoBadge   = color.New(color.FgCyan, color.Bold)
	successText = color.New(color.FgGreen, color.Bold)
	errorText   = color.New(color.FgRed)
	accentText  = color.New(color.FgMagenta, color.Bold)
	mutedText   = color.New(color.FgHiBlack)
	neonBlue    = color.New(color.FgHiCyan, color.Bold)
)

// PrintBanner displays the startup banner.
func PrintBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	white := color.New(color.FgWhite)

	fmt.Println()
	cyan.Println("╔══════════════════════════════════════════════════╗")
	cyan.Print("║  ")
	magenta.Print("POLYCHAT API")
	white.Print("  multi-model chat backend")
	mutedText.Print("  v1.0.0")
	cyan.Println("  ║")
	cyan.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()
}

// PrintStartupInfo prints server address, configured providers and the
// storage backend.
func PrintStartupInfo(host string, port int, providers []domain.ProviderType, backend string) {
	infoBadge.Print("[SERVER]")
	fmt.Print(" Listening on ")
	neonBlue.Printf("http://%s:%d\n", host, port)

	infoBadge.Print("[SERVER]")
	fmt.Print(" Providers: ")
	if len(providers) == 0 {
		errorText.Println("none configured")
	} else {
		for i, p := range providers {
			if i > 0 {
				fmt.Print(", ")
			}
			successText.Print(string(p))
		}
		fmt.Println()
	}

	infoBadge.Print("[SERVER]")
	fmt.Print(" Storage: ")
	accentText.Println(backend)

	fmt.Println()
	printEndpoints()
}

// printEndpoints prints the main API endpoints.
func printEndpoints() {
	mutedText.Println("  POST   /api/chat/send                        Send a message")
	mutedText.Println("  GET    /api/chat/models                      List available models")
	mutedText.Println("  GET    /api/chat/conversations               List conversations")
	mutedText.Println("  POST   /api/chat/conversations               Create a conversation")
	mutedText.Println("  GET    /api/chat/conversations/:id           Get a conversation")
	mutedText.Println("  DELETE /api/chat/conversations/:id           Delete a conversation")
	mutedText.Println("  PUT    /api/chat/conversations/:id/title     Rename a conversation")
	mutedText.Println("  DELETE /api/chat/conversations/:id/messages  Clear messages")
	mutedText.Println("  GET    /health                               Health check")
	fmt.Println()
}

// PrintShutdown prints a shutdown message.
func PrintShutdown() {
	fmt.Println()
	color.New(color.FgYellow, color.Bold).Print("[SHUTDOWN]")
	color.New(color.FgYellow).Println(" Graceful shutdown initiated...")
}

// PrintGoodbye prints the final message after a clean stop.
func PrintGoodbye() {
	successText.Println("Server stopped.")
}
