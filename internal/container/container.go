// Package container wires the shared agentchat services using go.uber.org/dig.
package container

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/dayuer/agentchat/internal/agent"
	"github.com/dayuer/agentchat/internal/bridge"
	"github.com/dayuer/agentchat/internal/bus"
	"github.com/dayuer/agentchat/internal/config"
	"github.com/dayuer/agentchat/internal/export"
	"github.com/dayuer/agentchat/internal/history"
	"github.com/dayuer/agentchat/internal/providers"
	redisx "github.com/dayuer/agentchat/internal/redis"
	"github.com/dayuer/agentchat/internal/registry"
	"github.com/dayuer/agentchat/internal/topic"
)

// Channel is the conversation channel name, typed so dig can tell it
// apart from other strings.
type Channel string

// Clock supplies the current time.
type Clock func() time.Time

// Container holds the resolved service singletons.
// Callers use the typed getters; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	client   *goredis.Client
	bus      bus.Bus
	history  history.Store
	registry *registry.Registry
	channel  Channel
	now      Clock
}

func (c *Container) Config() *config.Config       { return c.cfg }
func (c *Container) Redis() *goredis.Client       { return c.client } // nil in memory
func (c *Container) Bus() bus.Bus                 { return c.bus }
func (c *Container) History() history.Store       { return c.history }
func (c *Container) Registry() *registry.Registry { return c.registry }
func (c *Container) Channel() string              { return string(c.channel) }

// New connects to Redis and builds all services from cfg.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	return NewWithClock(ctx, cfg, time.Now)
}

// NewWithClock is New with a fixed clock, which decides the channel date.
func NewWithClock(ctx context.Context, cfg *config.Config, now Clock) (*Container, error) {
	return build(cfg, now,
		func(cfg *config.Config) (*goredis.Client, error) { return newRedis(ctx, cfg) },
		newBus,
		newHistory,
	)
}

// NewInMemory builds the services on in-process backends. Nothing is
// shared with other processes, so the bridge and every agent must run in
// this one.
func NewInMemory(cfg *config.Config, now Clock) (*Container, error) {
	return build(cfg, now,
		func() bus.Bus { return bus.NewMemoryBus(0) },
		func() history.Store { return history.NewMemoryStore() },
	)
}

// services is what build resolves. The Redis client is absent for
// in-memory containers.
type services struct {
	dig.In

	Client   *goredis.Client `optional:"true"`
	Bus      bus.Bus
	History  history.Store
	Registry *registry.Registry
	Channel  Channel
}

func build(cfg *config.Config, now Clock, backends ...any) (*Container, error) {
	d := dig.New()

	ctors := append([]any{
		func() *config.Config { return cfg },
		func() Clock { return now },
		newRegistry,
		newChannel,
	}, backends...)
	for _, ctor := range ctors {
		if err := d.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(s services) {
		result = &Container{
			cfg:      cfg,
			client:   s.Client,
			bus:      s.Bus,
			history:  s.History,
			registry: s.Registry,
			channel:  s.Channel,
			now:      now,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

// Close releases the Redis connection, if any.
func (c *Container) Close() {
	redisx.Close(c.client)
}

func newRedis(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	return redisx.Connect(ctx, redisx.Config{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func newBus(client *goredis.Client) bus.Bus {
	return bus.NewRedisBus(client)
}

func newHistory(client *goredis.Client) history.Store {
	return history.NewRedisStore(client)
}

func newRegistry(cfg *config.Config) (*registry.Registry, error) {
	return registry.Load(cfg.Agents.RegistryFile)
}

// newChannel computes the channel once; it does not roll over at midnight.
func newChannel(cfg *config.Config, now Clock) Channel {
	return Channel(topic.Name(now(), cfg.Model.Name))
}

// Bridge builds the relay and its HTTP server.
func (c *Container) Bridge() (*bridge.Bridge, *bridge.Server) {
	br := bridge.New(c.bus, c.history, bridge.NewHub(), bridge.Config{
		Channel:      c.Channel(),
		RelayName:    c.cfg.Chat.RelayName,
		PollInterval: c.cfg.Chat.PollInterval(),
	})
	srv := bridge.NewServer(br, bridge.ServerConfig{
		Addr:      c.cfg.Gateway.BridgeAddr(),
		StaticDir: c.cfg.Gateway.StaticDir,
	})
	return br, srv
}

// Agent is one runnable agent: its loop and HTTP surface.
type Agent struct {
	Spec         registry.AgentSpec
	SystemPrompt string
	Provider     *providers.Provider
	Loop         *agent.Loop
	Server       *agent.Server
}

// Agent builds the named registry agent listening on port.
func (c *Container) Agent(name string, port int) (*Agent, error) {
	spec, ok := c.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("agent %q not found in %s", name, c.cfg.Agents.RegistryFile)
	}

	m := c.cfg.Model
	model := m.Name
	if spec.Model != "" {
		model = spec.Model
	}
	maxTokens := m.MaxTokens
	if spec.MaxTokens > 0 {
		maxTokens = spec.MaxTokens
	}
	temperature := m.Temperature
	if spec.Temperature > 0 {
		temperature = spec.Temperature
	}

	provider := providers.NewProvider(m.APIKey, m.APIBase, model, m.Provider)
	provider.MaxTokens = maxTokens
	provider.Temperature = temperature

	prompt := c.registry.SystemPrompt(spec, c.now(), maxTokens)
	responder := agent.NewLLMResponder(provider, agent.ResponderConfig{
		Name:         spec.Name,
		SystemPrompt: prompt,
		Model:        model,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		Timeout:      c.cfg.Chat.ResponderTimeout(),
	})
	loop := agent.NewLoop(c.bus, c.history, responder, agent.LoopConfig{
		Name:          spec.Name,
		Channel:       c.Channel(),
		PollInterval:  c.cfg.Chat.PollInterval(),
		HistoryWindow: c.cfg.Chat.HistoryWindow,
		Cooldown:      c.cfg.Chat.Cooldown(),
		Fallback:      c.cfg.Chat.FallbackText,
	})
	srv := agent.NewServer(loop, agent.ServerConfig{
		Addr:         net.JoinHostPort(c.cfg.Gateway.Host, strconv.Itoa(port)),
		SystemPrompt: prompt,
		ModelInfo:    provider.Info(),
	})
	return &Agent{Spec: spec, SystemPrompt: prompt, Provider: provider, Loop: loop, Server: srv}, nil
}

// Exporter builds a transcript exporter over the shared history.
func (c *Container) Exporter(limit int) *export.Exporter {
	exp := export.NewExporter(c.history, limit)
	exp.Now = c.now
	return exp
}
