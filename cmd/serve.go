package cmd

import (
	"context"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"gamezone/m/internal/api"
	"gamezone/m/internal/auth"
	"gamezone/m/internal/cart"
	"gamezone/m/internal/catalog"
	"gamezone/m/internal/identity"
	"gamezone/m/internal/ledger"
	"gamezone/m/internal/scanner"
	"gamezone/m/internal/seed"
	"gamezone/m/internal/storage"
)

var useMemoryStore bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kiosk HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		var kv storage.Store
		if useMemoryStore {
			kv = storage.NewMemory()
		} else {
			sqlite, err := storage.OpenSQLite(cfg.DatabaseDSN)
			if err != nil {
				log.Fatalf("unable to open storage: %v", err)
			}
			defer sqlite.Close()
			kv = sqlite
		}

		device := identity.NewStored(kv)

		var authorizer auth.Authorizer
		if cfg.SecretHash != "" {
			authorizer = auth.BcryptSecret(cfg.SecretHash)
		} else {
			authorizer = auth.PlainSecret(cfg.Secret)
		}
		gate := auth.NewGate(authorizer, kv)

		cat := catalog.NewStore(kv, cfg.CatalogURL, cfg.PriceMarkup)
		cat.Load()
		seed.LoadCatalog(cat, cfg.CatalogSeed)

		crt := cart.New(kv)

		led := ledger.New(kv, device.DeviceID(), ledger.Options{
			MaxSales:      cfg.MaxSales,
			MaxEvents:     cfg.MaxEvents,
			RetentionDays: cfg.RetentionDays,
			MaxDailyUsage: cfg.MaxDailyUsage,
		})

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		led.LogAction("APP_START", map[string]string{"mode": gate.Mode()})
		go led.Run(ctx, cfg.SyncInterval, cfg.CleanupInterval)

		// Initial refresh is fire-and-forget; the cached catalog stays
		// authoritative until the fetch parses.
		go func() {
			if cat.Refresh(ctx) {
				led.LogAction("DATA_UPDATED", map[string]string{})
			}
		}()

		handler := api.New(cfg.Secret, cat, crt, led, gate, scanner.Config{
			MinCodeLength:        cfg.MinCodeLength,
			Cooldown:             cfg.ScanCooldown,
			CameraSettleDelay:    cfg.CameraSettleDelay,
			ResolvedStopDelay:    cfg.ResolvedStopDelay,
			NotFoundRetryDelay:   cfg.NotFoundRetryDelay,
			CameraErrorStopDelay: cfg.CameraErrorStopDelay,
			RestartDelay:         cfg.NotFoundRetryDelay,
		})

		log.Printf("GAME ZONE kiosk %s starting on :%s (device %s)", Version, cfg.HTTPPort, device.DeviceID())
		if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
			log.Fatalf("server error: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().BoolVar(&useMemoryStore, "memory", false, "use an in-memory store (state is lost on exit)")
	rootCmd.AddCommand(serveCmd)
}
