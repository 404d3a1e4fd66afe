// This program performs administrative tasks for the service: provisioning
// tenants and checking the signing keys.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/mail"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/grantbus/stores/grantdb"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus/stores/subscriptiondb"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/domain/tenantbus/stores/tenantdb"
	"github.com/ridewave/ridewave/business/domain/userbus"
	"github.com/ridewave/ridewave/business/domain/userbus/stores/userdb"
	"github.com/ridewave/ridewave/business/sdk/audit"
	"github.com/ridewave/ridewave/business/sdk/audit/stores/auditdb"
	"github.com/ridewave/ridewave/business/sdk/payment"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/domainname"
	"github.com/ridewave/ridewave/business/types/name"
	"github.com/ridewave/ridewave/business/types/password"
	"github.com/ridewave/ridewave/business/types/role"
	"github.com/ridewave/ridewave/business/types/slug"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/keystore"
	"github.com/ridewave/ridewave/foundation/logger"
)

type Config struct {
	DB struct {
		User         string `envconfig:"DB_USER" default:"postgres"`
		Password     string `envconfig:"DB_PASSWORD" default:"postgres"`
		Host         string `envconfig:"DB_HOST" default:"localhost"`
		Name         string `envconfig:"DB_NAME" default:"ridewave"`
		MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"0"`
		MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"0"`
		DisableTLS   bool   `envconfig:"DB_DISABLE_TLS" default:"true"`
	}
	Auth struct {
		KeysFolder string `envconfig:"AUTH_KEYS_FOLDER" default:"foundation/zarf/keys"`
	}
	Payment struct {
		CheckoutURL   string `envconfig:"PAYMENT_CHECKOUT_URL" default:"https://checkout.ridewave.io/session"`
		SigningSecret string `envconfig:"PAYMENT_SIGNING_SECRET" default:"dev-only-secret"`
	}
}

func main() {
	log := logger.New(os.Stdout, logger.LevelInfo, "ADMIN-TOOL", nil)
	ctx := context.Background()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("processing config: %w", err)
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: provision, check-keys")
		return nil
	}

	switch os.Args[1] {
	case "check-keys":
		return runCheckKeys(cfg)
	case "provision":
		db, err := sqldb.Open(sqldb.Config{
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			Host:         cfg.DB.Host,
			Name:         cfg.DB.Name,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			DisableTLS:   cfg.DB.DisableTLS,
		})
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer db.Close()

		auditor := audit.NewCore(log, auditdb.NewStore(log, db))
		grantBus := grantbus.NewCore(log, grantdb.NewStore(log, db))
		userBus := userbus.NewCore(log, userdb.NewStore(log, db))
		tenantBus := tenantbus.NewCore(log, tenantdb.NewStore(log, db))

		gateway := payment.New(payment.Config{
			Log:           log,
			CheckoutURL:   cfg.Payment.CheckoutURL,
			SigningSecret: cfg.Payment.SigningSecret,
		})

		subscriptionBus := subscriptionbus.NewCore(log, subscriptiondb.NewStore(log, db), grantBus, tenantBus, gateway, auditor)

		return runProvision(ctx, tenantBus, subscriptionBus, userBus, os.Args[2:])
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runProvision creates a tenant with its opening subscription, the grant
// rows its tier provides, and the owning admin user.
func runProvision(ctx context.Context, tb *tenantbus.Core, sb *subscriptionbus.Core, ub *userbus.Core, args []string) error {
	cmd := flag.NewFlagSet("provision", flag.ExitOnError)
	nameStr := cmd.String("name", "", "Tenant display name (Required)")
	slugStr := cmd.String("slug", "", "Tenant subdomain slug (Required)")
	domainStr := cmd.String("domain", "", "Custom domain (Optional)")
	tierStr := cmd.String("tier", "FREE", "Plan tier (FREE, BASIC, PRO, ENTERPRISE)")
	cycleStr := cmd.String("cycle", "MONTHLY", "Billing cycle (MONTHLY, YEARLY)")
	ownerEmail := cmd.String("owner-email", "", "Owner email (Required)")
	ownerPass := cmd.String("owner-password", "", "Owner password (Required)")
	ownerName := cmd.String("owner-name", "", "Owner full name (Required)")
	cmd.Parse(args)

	if *nameStr == "" || *slugStr == "" || *ownerEmail == "" || *ownerPass == "" || *ownerName == "" {
		cmd.PrintDefaults()
		return fmt.Errorf("missing required fields")
	}

	n, err := name.Parse(*nameStr)
	if err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}

	s, err := slug.Parse(*slugStr)
	if err != nil {
		return fmt.Errorf("invalid slug: %w", err)
	}

	d, err := domainname.ParseNull(*domainStr)
	if err != nil {
		return fmt.Errorf("invalid domain: %w", err)
	}

	t, err := tier.Parse(*tierStr)
	if err != nil {
		return fmt.Errorf("invalid tier: %w", err)
	}

	cycle, err := billingcycle.Parse(*cycleStr)
	if err != nil {
		return fmt.Errorf("invalid cycle: %w", err)
	}

	addr, err := mail.ParseAddress(*ownerEmail)
	if err != nil {
		return fmt.Errorf("invalid owner email: %w", err)
	}

	on, err := name.Parse(*ownerName)
	if err != nil {
		return fmt.Errorf("invalid owner name: %w", err)
	}

	op, err := password.Parse(*ownerPass)
	if err != nil {
		return fmt.Errorf("invalid owner password: %w", err)
	}

	tnt, err := tb.Create(ctx, tenantbus.NewTenant{
		Name:   n,
		Slug:   s,
		Domain: d,
		Tier:   t,
	})
	if err != nil {
		return fmt.Errorf("create tenant failed: %w", err)
	}

	sub, err := sb.Create(ctx, subscriptionbus.NewSubscription{
		TenantID: tnt.ID,
		Tier:     t,
		Cycle:    cycle,
	})
	if err != nil {
		return fmt.Errorf("create subscription failed: %w", err)
	}

	owner, err := ub.Create(ctx, userbus.NewUser{
		TenantID: tnt.ID,
		Name:     on,
		Email:    *addr,
		Role:     role.Admin,
		Password: op,
	})
	if err != nil {
		return fmt.Errorf("create owner failed: %w", err)
	}

	fmt.Printf("\nSUCCESS: Tenant provisioned!\n")
	fmt.Printf("Tenant:       %s (%s)\n", tnt.ID, tnt.Slug)
	fmt.Printf("Subscription: %s %s until %s\n", sub.Tier, sub.Status, sub.PeriodEnd.Format(time.RFC3339))
	fmt.Printf("Owner:        %s (%s)\n", owner.ID, owner.Email.Address)
	return nil
}

// runCheckKeys verifies every key in the keys folder can sign and verify.
func runCheckKeys(cfg Config) error {
	ks := keystore.New()

	activeKID, err := ks.LoadByFileSystem(os.DirFS(cfg.Auth.KeysFolder))
	if err != nil {
		return fmt.Errorf("loading keys: %w", err)
	}

	if _, err := ks.PrivateKey(activeKID); err != nil {
		return fmt.Errorf("private key %q: %w", activeKID, err)
	}

	if _, err := ks.PublicKey(activeKID); err != nil {
		return fmt.Errorf("public key %q: %w", activeKID, err)
	}

	fmt.Printf("\nSUCCESS: key %q loads and resolves both halves\n", activeKID)
	return nil
}
