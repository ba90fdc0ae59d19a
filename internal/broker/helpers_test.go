package broker

import "github.com/Alturino/storefront/internal/config"

func configBroker(kind string) config.Broker {
	return config.Broker{Kind: kind, Brokers: []string{"localhost:9092"}, GroupID: "test"}
}
