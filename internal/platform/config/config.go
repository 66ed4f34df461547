// Package config holds the tunables of the gang simulation and its host.
// Defaults mirror the documented behavior; every value can be overridden
// from the environment (GANG_* variables, optionally read from a .env file).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Simulation configures the engine. All probabilities are in [0, 1].
type Simulation struct {
	// Feature flags
	DrugsEnabled       bool
	WeaponsEnabled     bool
	TerritoryWars      bool
	SolitaryEnabled    bool
	DeathEnabled       bool
	WeaponStealing     bool
	IndependentAllowed bool
	InitialGangCount   int
	GuardCount         int

	// Scheduler
	TickInterval         time.Duration // how often the host calls AdvanceTick
	IntervalUnit         time.Duration // elapsed time that counts as one decay step
	LoyaltyDecayRate     float64       // loyalty points lost per interval unit
	ViolenceFrequency    float64       // 0-1, ambient violence chance is ×0.1
	EnvironmentIntensity float64       // 0-1, recruitment modifier
	AmbientRecruitChance float64

	// Violence
	SolitaryDuration time.Duration
	DeathBaseChance  float64

	// Drugs
	SmuggleBaseRisk float64
	DealBaseRisk    float64
	SmuggleSentence time.Duration
	DealSentence    time.Duration

	// Weapons
	GunCost       float64
	ChainCost     float64
	ShankCost     float64
	BribeSentence time.Duration
	BribeCooldown time.Duration

	// Recruitment
	RecruitTriggerChance float64
}

// DefaultSimulation returns the documented defaults.
func DefaultSimulation() Simulation {
	return Simulation{
		DrugsEnabled:       true,
		WeaponsEnabled:     true,
		TerritoryWars:      true,
		SolitaryEnabled:    true,
		DeathEnabled:       true,
		WeaponStealing:     true,
		IndependentAllowed: true,
		InitialGangCount:   4,
		GuardCount:         6,

		TickInterval:         10 * time.Second,
		IntervalUnit:         10 * time.Second,
		LoyaltyDecayRate:     0.5,
		ViolenceFrequency:    0.5,
		EnvironmentIntensity: 0.5,
		AmbientRecruitChance: 0.05,

		SolitaryDuration: 5 * time.Minute,
		DeathBaseChance:  0.05,

		SmuggleBaseRisk: 0.15,
		DealBaseRisk:    0.075,
		SmuggleSentence: 10 * time.Minute,
		DealSentence:    5 * time.Minute,

		GunCost:       30,
		ChainCost:     15,
		ShankCost:     10,
		BribeSentence: 3 * time.Minute,
		BribeCooldown: 30 * time.Second,

		RecruitTriggerChance: 0.15,
	}
}

// Server configures the host process around the engine.
type Server struct {
	Addr             string
	GameID           string
	DBDialect        string // "sqlite" or "postgres"
	SQLitePath       string
	PostgresDSN      string
	Seed             uint64
	EventRetention   int // events kept in memory by the host
	DrugRetention    int // drug transactions listed by the debug command
	ContextCacheLen  int
	ClientSendBuffer int
	DBMaxOpenConns   int
	Profile          string // load profile the buffer and pool sizes came from
}

// DefaultServer returns development defaults.
func DefaultServer() Server {
	return Server{
		Addr:             ":8080",
		GameID:           "GANGS_1",
		DBDialect:        "sqlite",
		SQLitePath:       "data/gangs.db",
		Seed:             uint64(time.Now().UnixNano()),
		EventRetention:   100,
		DrugRetention:    200,
		ContextCacheLen:  256,
		ClientSendBuffer: 256,
		DBMaxOpenConns:   runtime.NumCPU() * 4,
		Profile:          "default",
	}
}

// ApplyProfile tunes buffer and pool sizes for a load profile:
// "default", "stress" for load tests, or "low" for development machines.
func (s *Server) ApplyProfile(name string) error {
	numCPU := runtime.NumCPU()
	switch name {
	case "", "default":
		s.ClientSendBuffer, s.DBMaxOpenConns = 256, numCPU*4
		name = "default"
	case "stress":
		s.ClientSendBuffer, s.DBMaxOpenConns = 512, numCPU*8
	case "low":
		s.ClientSendBuffer, s.DBMaxOpenConns = 16, 5
	default:
		return fmt.Errorf("unknown profile %q", name)
	}
	s.Profile = name
	return nil
}

// Config bundles both halves.
type Config struct {
	Simulation Simulation
	Server     Server
}

// Load reads an optional .env file and applies GANG_* overrides on top of
// the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{Simulation: DefaultSimulation(), Server: DefaultServer()}
	p := parser{lookup: lookup}

	sim := &cfg.Simulation
	p.boolean("GANG_DRUGS_ENABLED", &sim.DrugsEnabled)
	p.boolean("GANG_WEAPONS_ENABLED", &sim.WeaponsEnabled)
	p.boolean("GANG_TERRITORY_WARS", &sim.TerritoryWars)
	p.boolean("GANG_SOLITARY_ENABLED", &sim.SolitaryEnabled)
	p.boolean("GANG_DEATH_ENABLED", &sim.DeathEnabled)
	p.boolean("GANG_WEAPON_STEALING", &sim.WeaponStealing)
	p.boolean("GANG_INDEPENDENT_ALLOWED", &sim.IndependentAllowed)
	p.integer("GANG_INITIAL_GANGS", &sim.InitialGangCount)
	p.integer("GANG_GUARD_COUNT", &sim.GuardCount)
	p.duration("GANG_TICK_INTERVAL", &sim.TickInterval)
	p.duration("GANG_INTERVAL_UNIT", &sim.IntervalUnit)
	p.float("GANG_LOYALTY_DECAY", &sim.LoyaltyDecayRate)
	p.float("GANG_VIOLENCE_FREQUENCY", &sim.ViolenceFrequency)
	p.float("GANG_ENVIRONMENT_INTENSITY", &sim.EnvironmentIntensity)
	p.duration("GANG_SOLITARY_DURATION", &sim.SolitaryDuration)
	p.float("GANG_SMUGGLE_RISK", &sim.SmuggleBaseRisk)
	p.float("GANG_DEAL_RISK", &sim.DealBaseRisk)
	p.duration("GANG_BRIBE_COOLDOWN", &sim.BribeCooldown)

	srv := &cfg.Server
	if v, ok := p.raw("GANG_PROFILE"); ok {
		if err := srv.ApplyProfile(v); err != nil {
			p.fail("GANG_PROFILE", err)
		}
	}
	p.str("GANG_ADDR", &srv.Addr)
	p.str("GANG_GAME_ID", &srv.GameID)
	p.str("DB_DIALECT", &srv.DBDialect)
	p.str("DB_SQLITE_PATH", &srv.SQLitePath)
	p.str("DB_POSTGRES_DSN", &srv.PostgresDSN)
	if srv.PostgresDSN == "" {
		p.str("DATABASE_URL", &srv.PostgresDSN)
	}
	p.uint("GANG_SEED", &srv.Seed)
	p.integer("GANG_EVENT_RETENTION", &srv.EventRetention)
	p.integer("GANG_DRUG_RETENTION", &srv.DrugRetention)
	p.integer("GANG_CONTEXT_CACHE", &srv.ContextCacheLen)
	p.integer("GANG_CLIENT_BUFFER", &srv.ClientSendBuffer)
	p.integer("DB_MAX_OPEN_CONNS", &srv.DBMaxOpenConns)

	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the host cannot run with.
func (c Config) Validate() error {
	if c.Simulation.IntervalUnit <= 0 {
		return errors.New("interval unit must be positive")
	}
	if c.Simulation.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if c.Simulation.GuardCount < 0 || c.Simulation.InitialGangCount < 0 {
		return errors.New("gang and guard counts must not be negative")
	}
	switch c.Server.DBDialect {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DIALECT %q", c.Server.DBDialect)
	}
	if c.Server.DBDialect == "postgres" && c.Server.PostgresDSN == "" {
		return errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
	}
	return nil
}

type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.raw(key); ok {
		*dst = v
	}
}

func (p *parser) boolean(key string, dst *bool) {
	if v, ok := p.raw(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = b
	}
}

func (p *parser) integer(key string, dst *int) {
	if v, ok := p.raw(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = n
	}
}

func (p *parser) uint(key string, dst *uint64) {
	if v, ok := p.raw(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = n
	}
}

func (p *parser) float(key string, dst *float64) {
	if v, ok := p.raw(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = f
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.raw(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = d
	}
}
