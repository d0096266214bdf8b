package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBDSN           string
	LogFile         string
	ServiceFeeRate  float64
	WireDeadline    time.Duration
	RedemptionWin   time.Duration
	NegotiationTTL  time.Duration
	SweepInterval   time.Duration
	ShippingAPIURL  string
	ShippingAPIKey  string
	BankWireDetails string
}

func Load() Config {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	cfg := Config{
		Port:            getenv("PORT", "8081"),
		DBDSN:           getenv("DB_DSN", "clearlot.db"),
		LogFile:         getenv("LOG_FILE", "./clearlot.log"),
		ServiceFeeRate:  getFloat("SERVICE_FEE_RATE", 0.035),
		WireDeadline:    getHours("WIRE_DEADLINE_HOURS", 48),
		RedemptionWin:   getHours("OFFER_REDEMPTION_HOURS", 72),
		NegotiationTTL:  getHours("OFFER_NEGOTIATION_TTL_HOURS", 14*24),
		SweepInterval:   getDuration("SWEEP_INTERVAL", time.Minute),
		ShippingAPIURL:  getenv("SHIPPING_API_URL", ""),
		ShippingAPIKey:  getenv("SHIPPING_API_KEY", ""),
		BankWireDetails: getenv("BANK_WIRE_DETAILS", "Clearlot Inc. / Routing 021000021 / Acct 4455667788"),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s FEE_RATE=%.4f WIRE=%s REDEMPTION=%s",
		cfg.Port, cfg.DBDSN, cfg.ServiceFeeRate, cfg.WireDeadline, cfg.RedemptionWin)
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f < 1 {
			return f
		}
		log.Printf("[config] ignoring invalid %s=%q", key, v)
	}
	return def
}

func getHours(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Hour
		}
		log.Printf("[config] ignoring invalid %s=%q", key, v)
	}
	return time.Duration(def) * time.Hour
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("[config] ignoring invalid %s=%q", key, v)
	}
	return def
}
