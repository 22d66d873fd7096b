// Command skytrack runs Operation Skytrack, a fugitive chase across a world
// of airports.
//
// Commands:
//  1. "server" (default, alias "http") runs the REST API, WebSocket updates and an /mcp HTTP endpoint
//  2. "mcp" (aliases "stdio-mcp", "mcp-stdio") runs an MCP stdio server, reusing a running API or starting an internal one
//  3. "play" runs the interactive terminal console
//  4. "seed" loads the world file into the configured database
//
// Settings come from the environment (SKYTRACK_*, see game/config) and can be
// overridden with flags. An optional ngrok tunnel exposes the server during
// development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/skytrack/api"
	"github.com/wricardo/skytrack/game/config"
	"github.com/wricardo/skytrack/game/engine"
	"github.com/wricardo/skytrack/game/service"
	"github.com/wricardo/skytrack/game/session"
	"github.com/wricardo/skytrack/game/store/gormstore"
	"github.com/wricardo/skytrack/game/store/memory"
	"github.com/wricardo/skytrack/transport/mcp"
	"github.com/wricardo/skytrack/transport/terminal"
	"github.com/wricardo/skytrack/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Operation Skytrack"
)

// main loads .env and runs the command tree
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "skytrack",
		Usage:   AppName + " server, MCP bridge and console",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port"},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing rule sets"},
			&cli.StringFlag{Name: "world", Value: "data/world.yaml", Usage: "World file with countries, airports, clues and NPCs"},
			&cli.StringFlag{Name: "session-dir", Value: "sessions", Usage: "Directory for persisted sessions"},
			&cli.StringFlag{Name: "db-type", Value: "sqlite3", Usage: "Store: memory, sqlite3, mysql or postgres"},
			&cli.StringFlag{Name: "db", Value: "skytrack.db", Usage: "Database name (file name for sqlite3)"},
			&cli.StringFlag{Name: "api-url", Usage: "REST API the MCP stdio bridge should use"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel (or NGROK_ENABLED=true)"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or use NGROK_AUTHTOKEN env var)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		},
		Action: runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServerCommand,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runMCPCommand,
			},
			{
				Name:  "play",
				Usage: "Play in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "rules", Usage: "Rule set to play under (default classic)"},
				},
				Action: runPlayCommand,
			},
			{
				Name:   "seed",
				Usage:  "Load the world file into the database",
				Action: runSeedCommand,
			},
		},
	}
}

// loadSettings reads the environment and applies any flags set explicitly
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		settings.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("config-dir") {
		settings.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("world") {
		settings.WorldFile = cmd.String("world")
	}
	if cmd.IsSet("session-dir") {
		settings.SessionDir = cmd.String("session-dir")
	}
	if cmd.IsSet("db-type") {
		settings.Database.Type = config.DatabaseType(cmd.String("db-type"))
	}
	if cmd.IsSet("db") {
		settings.Database.Name = cmd.String("db")
	}
	if cmd.IsSet("api-url") {
		settings.APIURL = cmd.String("api-url")
	}
	if cmd.IsSet("debug") {
		settings.Debug = cmd.Bool("debug")
	}

	if err := settings.Database.Validate(); err != nil {
		return nil, err
	}

	if settings.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	return settings, nil
}

// services holds everything a command needs to run the game
type services struct {
	settings *config.Settings
	world    *config.World
	configs  *config.Manager
	store    engine.Store
	db       *gormstore.Store // nil for the memory store
	sessions *session.Manager
	game     service.GameService
}

// initializeServices loads the world and rule sets, opens the store and wires
// the session manager and game service. Sessions are persisted to disk only
// when the store is durable, since a memory store forgets the players they
// point to.
func initializeServices(ctx context.Context, settings *config.Settings) (*services, error) {
	configManager, err := config.NewManager(settings.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	world, err := config.LoadWorld(settings.WorldFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load world: %w", err)
	}
	checkRuleSets(world, configManager)

	s := &services{
		settings: settings,
		world:    world,
		configs:  configManager,
	}

	if settings.Database.Type == config.Memory {
		s.store = memory.NewStoreWithWorld(world)
		s.sessions = session.NewManager()
	} else {
		db, err := gormstore.Open(settings.Database.GetDialector(), gormstore.Options{
			QueryTimeout: settings.Database.QueryTimeout,
			MaxOpenConns: settings.Database.MaxOpenConns,
			Debug:        settings.Debug,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open %s database: %w", settings.Database.Type, err)
		}
		if err := db.Seed(ctx, world); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed world: %w", err)
		}
		s.store = db
		s.db = db

		persistence, err := session.NewFilePersistence(settings.SessionDir, configManager)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		s.sessions = session.NewManagerWithPersistence(persistence)

		if err := s.sessions.LoadPersistedSessions(); err != nil {
			log.Printf("Warning: Failed to load persisted sessions: %v", err)
		}
	}

	s.game = service.NewGameService(s.store, s.sessions, configManager)
	return s, nil
}

// checkRuleSets warns about rule sets whose airports are missing from the world
func checkRuleSets(world *config.World, configManager *config.Manager) {
	infos, err := configManager.ListConfigs()
	if err != nil {
		log.Printf("Warning: Failed to list rule sets: %v", err)
		return
	}
	for _, info := range infos {
		rules, err := configManager.LoadConfig(info.ConfigID)
		if err != nil {
			continue
		}
		if err := world.CheckRules(rules); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
}

// Close flushes sessions and closes the database
func (s *services) Close() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		log.Printf("Warning: Failed to save sessions: %v", err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Warning: Failed to close database: %v", err)
		}
	}
}

// healthCheck returns the database probe, or nil for the memory store
func (s *services) healthCheck() func(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping
}

// startScheduler runs session housekeeping: expiring idle sessions and
// dropping sessions whose file was deleted on disk.
func startScheduler(sessions *session.Manager, ttl time.Duration) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			if removed := sessions.CleanupExpiredSessions(ttl); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule session cleanup: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(5*time.Second),
		gocron.NewTask(func() {
			if pruned := sessions.PruneOrphaned(); pruned > 0 {
				log.Printf("Filesystem sync: pruned %d orphaned sessions from memory", pruned)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule filesystem sync: %w", err)
	}

	scheduler.Start()
	return scheduler, nil
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	svc, err := initializeServices(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	scheduler, err := startScheduler(svc.sessions, settings.SessionTTL)
	if err != nil {
		return err
	}
	defer scheduler.Shutdown()

	runHTTPServer(svc, ngrokOptions{
		enabled: cmd.Bool("ngrok"),
		auth:    cmd.String("ngrok-auth"),
		domain:  cmd.String("ngrok-domain"),
	})
	return nil
}

// mcpHandler serves MCP JSON-RPC messages over plain HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the REST API at the root and the MCP proxy at /mcp
func newRouter(apiServer *api.Server, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

type ngrokOptions struct {
	enabled bool
	auth    string
	domain  string
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(svc *services, ngrokOpts ngrokOptions) {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Close()

	apiServer := api.NewServer(svc.game, hub)
	apiServer.SetHealthCheck(svc.healthCheck())

	addr := fmt.Sprintf("%s:%d", svc.settings.Host, svc.settings.Port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Setup graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	ngrokShouldRun := ngrokOpts.enabled
	if !ngrokShouldRun {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, ngrokOpts, mainRouter)
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, opts ngrokOptions, handler http.Handler) {
	// Get auth token from flag or environment (support both naming conventions)
	authToken := opts.auth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}

	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	domain := opts.domain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	// http.Serve only returns once the listener closes
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runMCPCommand runs an MCP stdio server.
// It tries to reuse an external API (--api-url, or the local server port); if
// unavailable, it starts an internal HTTP API bound to a random loopback port.
func runMCPCommand(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// stdout carries the MCP protocol; everything else printed goes to stderr
	protocolOut := os.Stdout
	os.Stdout = os.Stderr

	externalURL := settings.APIURL
	if externalURL == "" {
		externalURL = fmt.Sprintf("http://localhost:%d", settings.Port)
	}
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := ""
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api")
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 500 {
			log.Printf("External API server found at %s, using it for MCP", externalURL)
			baseURL = externalURL
		}
	}

	if baseURL == "" {
		log.Printf("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(ctx, settings)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svc.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run()
		defer hub.Close()

		apiServer := api.NewServer(svc.game, hub)
		apiServer.SetHealthCheck(svc.healthCheck())

		httpServer := &http.Server{Handler: apiServer}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.Printf("Internal HTTP server on %s for MCP stdio", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")

	stdio := server.NewStdioServer(mcpClient.GetMCPServer())
	if err := stdio.Listen(ctx, os.Stdin, protocolOut); err != nil && err != context.Canceled {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func runPlayCommand(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	svc, err := initializeServices(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := terminal.NewConsole(svc.game, cmd.String("rules"), os.Stdin, os.Stdout)
	return console.Run(ctx)
}

func runSeedCommand(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.Database.Type == config.Memory {
		return fmt.Errorf("nothing to seed: the memory store is rebuilt from %s on every start", settings.WorldFile)
	}

	// initializeServices seeds the database as part of opening it
	svc, err := initializeServices(ctx, settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Printf("Seeded %d countries and %d airports from %s into %s database %s\n",
		len(svc.world.Countries), len(svc.world.Airports), settings.WorldFile, settings.Database.Type, settings.Database.Name)
	return nil
}
