// Package dependency wires core tidewhale services using go.uber.org/dig.
package dependency

import (
	"go.uber.org/dig"

	"github.com/tidewhale/tidewhale/internal/bus"
	"github.com/tidewhale/tidewhale/internal/channels"
	"github.com/tidewhale/tidewhale/internal/chat"
	"github.com/tidewhale/tidewhale/internal/config"
	"github.com/tidewhale/tidewhale/internal/history"
	"github.com/tidewhale/tidewhale/internal/llm"
	"github.com/tidewhale/tidewhale/internal/rates"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	store      history.Store
	llmClient  *llm.Client
	ratesSvc   *rates.Service
	msgBus     bus.Bus
	controller *chat.Controller
	manager    *channels.Manager
}

func (c *Container) HistoryStore() history.Store    { return c.store }
func (c *Container) LLMClient() *llm.Client         { return c.llmClient }
func (c *Container) RatesService() *rates.Service   { return c.ratesSvc }
func (c *Container) MessageBus() bus.Bus            { return c.msgBus }
func (c *Container) Controller() *chat.Controller   { return c.controller }
func (c *Container) ChannelManager() *channels.Manager { return c.manager }

// Close releases held resources: the history store's backend connection and
// the LLM client's idle connections.
func (c *Container) Close() error {
	c.llmClient.Close()
	return c.store.Close()
}

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(newMessageBus); err != nil {
		return nil, err
	}
	if err := d.Provide(newHistoryStore); err != nil {
		return nil, err
	}
	if err := d.Provide(newLLMClient); err != nil {
		return nil, err
	}
	if err := d.Provide(newRatesService); err != nil {
		return nil, err
	}
	if err := d.Provide(newController); err != nil {
		return nil, err
	}
	if err := d.Provide(newChannelManager); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		store history.Store,
		client *llm.Client,
		ratesSvc *rates.Service,
		b bus.Bus,
		controller *chat.Controller,
		manager *channels.Manager,
	) {
		result = &Container{
			store:      store,
			llmClient:  client,
			ratesSvc:   ratesSvc,
			msgBus:     b,
			controller: controller,
			manager:    manager,
		}
	})
	return result, err
}

func newMessageBus() bus.Bus {
	return bus.NewMessageBus(100)
}

func newHistoryStore(cfg *config.Config) history.Store {
	return history.NewStore(cfg.History)
}

func newLLMClient(cfg *config.Config) *llm.Client {
	return llm.New(llm.Params{
		APIURL:  cfg.LLM.APIURL,
		Referer: cfg.LLM.Referer,
		Timeout: cfg.LLM.Timeout(),
		Retries: cfg.LLM.Retries,
	})
}

func newRatesService(cfg *config.Config) *rates.Service {
	return rates.NewService(cfg.Rates.APIURL, nil)
}

func newController(b bus.Bus, store history.Store, client *llm.Client, ratesSvc *rates.Service, cfg *config.Config) *chat.Controller {
	return chat.NewController(b, store, client, ratesSvc, cfg)
}

func newChannelManager(cfg *config.Config, b bus.Bus) *channels.Manager {
	return channels.NewManager(cfg, b)
}
