// Command pal runs the companion: a gateway with channels and an HTTP API,
// or a local terminal chat.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/palproject/pal/internal/config"
	"github.com/palproject/pal/internal/gateway"
	"github.com/palproject/pal/internal/identity"
)

var rootCmd = &cobra.Command{
	Use:   "pal",
	Short: "pal - a small companion that grows up with you",
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the full gateway (channels + API + background life)",
	RunE:  runGateway,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the companion in the terminal",
	RunE:  runChat,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize the config file",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the companion's state",
	RunE:  runStatus,
}

var messageFlag string

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	rootCmd.AddCommand(gatewayCmd, chatCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGateway(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'pal onboard' or set PAL_API_KEY / ANTHROPIC_API_KEY")
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

// ChatOptions allows injecting IO and a prebuilt gateway for testing.
type ChatOptions struct {
	Message string
	Stdin   io.Reader
	Stdout  io.Writer
	Gateway *gateway.Gateway
}

func runChat(_ *cobra.Command, _ []string) error {
	return runChatWithOptions(ChatOptions{Message: messageFlag})
}

func runChatWithOptions(opts ChatOptions) error {
	gw := opts.Gateway
	if gw == nil {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Provider.APIKey == "" {
			return fmt.Errorf("API key not set. Run 'pal onboard' or set PAL_API_KEY / ANTHROPIC_API_KEY")
		}
		// The terminal chat keeps everything in-process; no channels.
		cfg.Channels.Telegram.Enabled = false
		cfg.Channels.Web.Enabled = false
		gw, err = gateway.New(cfg)
		if err != nil {
			return fmt.Errorf("create gateway: %w", err)
		}
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	ctx := context.Background()

	if opts.Message != "" {
		result, err := gw.ProcessExchange(ctx, "cli", "local", opts.Message)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Pal: %s\n", result.Response)
		return nil
	}

	fmt.Fprintln(stdout, "Talking to Pal. Ctrl+D to leave.")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "You: ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		result, err := gw.ProcessExchange(ctx, "cli", "local", line)
		if err != nil {
			fmt.Fprintf(stdout, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(stdout, "Pal: %s\n", result.Response)
	}
	return scanner.Err()
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key\n", cfgPath)
	fmt.Println("  2. Or set PAL_API_KEY environment variable")
	fmt.Println("  3. Run 'pal chat' to meet your companion")
	return nil
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Companion.Model)
	if key := cfg.Provider.APIKey; key != "" && len(key) > 8 {
		fmt.Printf("API Key: %s...%s\n", key[:4], key[len(key)-4:])
	} else if key != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("Web: enabled=%v\n", cfg.Channels.Web.Enabled)

	idPath := config.IdentityPath()
	if _, err := os.Stat(idPath); err != nil {
		fmt.Println("Companion: not born yet (run 'pal chat')")
		return nil
	}

	now := time.Now()
	id, err := identity.NewStore(idPath).Load(cfg.Companion.Name, now)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	fmt.Printf("\n%s\n", id.Name)
	fmt.Printf("  Age: %s\n", id.Age(now))
	fmt.Printf("  Mood: %s\n", id.Mood)
	if id.OwnerName != "" {
		fmt.Printf("  Owner: %s\n", id.OwnerName)
	}
	fmt.Printf("  Messages: %d\n", id.Stats.Messages)
	fmt.Printf("  Days known: %d\n", id.Stats.UniqueDayCount())
	fmt.Printf("  Skills: %d unlocked\n", len(id.Skills.Unlocked()))
	fmt.Printf("  Topics: %d\n", len(id.Topics.Cards()))
	return nil
}
