// Package discovery announces and finds atendimento-dp form servers on the
// local network over mDNS.
//
// Form servers register as "_http._tcp" services with the TXT record
// "app=atendimento-dp". The TXT record tells them apart from printers and
// other HTTP services sharing the service type.
//
// # Usage Example
//
//	// Server side
//	ad, err := discovery.Advertise("Atendimento DP", 8080, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
//	// Client side
//	servers, err := discovery.ScanForServers(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range servers {
//	    fmt.Println(s.Instance, s.URL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Servers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
