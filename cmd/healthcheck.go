package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/0xERR0R/canarynet/config"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"
)

const (
	defaultDNSPort   = uint16(53)
	defaultIPAddress = "127.0.0.1"
)

// NewHealthcheckCommand creates new command instance
func NewHealthcheckCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "healthcheck",
		Args:  cobra.NoArgs,
		Short: "performs healthcheck against a running instance",
		RunE:  healthcheck,
	}

	c.Flags().Uint16P("port", "p", defaultDNSPort, "dns port of the running instance")
	c.Flags().StringP("bindip", "b", defaultIPAddress, "dns binding ip address")
	c.Flags().StringP("name", "n", "", "canary name to resolve, taken from the configuration when empty")
	c.Flags().Bool("api", false, "additionally check the status API")

	return c
}

// healthcheck resolves the canary name through the running DNS tier. The
// answer proves the zone tree is serving, rcode and transport errors both
// count as unhealthy.
func healthcheck(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetUint16("port")
	bindIP, _ := cmd.Flags().GetString("bindip")
	name, _ := cmd.Flags().GetString("name")
	checkAPI, _ := cmd.Flags().GetBool("api")

	if name == "" {
		cfg, err := config.LoadConfig(configPath, false)
		if err != nil {
			return err
		}

		name = cfg.DNS.Canary
	}

	if name == "" {
		return errors.New("no canary name configured")
	}

	err := resolveCanary(name, net.JoinHostPort(bindIP, fmt.Sprint(port)))

	if err == nil && checkAPI {
		err = checkStatusAPI()
	}

	if err == nil {
		fmt.Println("OK")
	} else {
		fmt.Println("NOT OK")
	}

	return err
}

func resolveCanary(name, addr string) error {
	c := &dns.Client{Net: "tcp"}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)

	resp, _, err := c.Exchange(m, addr)
	if err != nil {
		return err
	}

	if resp.Rcode != dns.RcodeSuccess {
		return fmt.Errorf("canary '%s' returned rcode %s", name, dns.RcodeToString[resp.Rcode])
	}

	return nil
}

func checkStatusAPI() error {
	resp, err := http.Get(apiURL() + "/run/status")
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status API answered %s", resp.Status)
	}

	return nil
}
