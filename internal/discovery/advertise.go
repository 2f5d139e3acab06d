package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/atendimento-dp/feedbackform/internal/logging"
)

// Advertisement is a running mDNS registration of a form server
type Advertisement struct {
	server   *zeroconf.Server
	Instance string
	Port     int
}

// AdvertiseTXT returns the TXT records announced for a form server
func AdvertiseTXT(version string) []string {
	txt := []string{TXTApp + "=" + AppName, TXTPath + "=/"}
	if version != "" {
		txt = append(txt, TXTVersion+"="+version)
	}
	return txt
}

// Advertise registers a form server listening on port under the given
// instance name so `atendimento-dp discover` can find it.
func Advertise(instance string, port int, version string) (*Advertisement, error) {
	if port <= 0 {
		return nil, fmt.Errorf("invalid port for mDNS advertisement: %d", port)
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, AdvertiseTXT(version), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Form server advertised via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	return &Advertisement{server: server, Instance: instance, Port: port}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Info("mDNS advertisement withdrawn", zap.String("instance", a.Instance))
}
