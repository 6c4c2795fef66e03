package util

import (
	"testing"
)

func TestReadConfEnvOverrides(t *testing.T) {
	t.Setenv("FEDBRIDGE_HOST", "0.0.0.0")
	t.Setenv("FEDBRIDGE_HTTPPORT", "9999")
	t.Setenv("FEDBRIDGE_DOMAIN", "bridge.example.org")
	t.Setenv("FEDBRIDGE_PROTOCOL", "https")

	conf, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf failed: %v", err)
	}

	if conf.Conf.Host != "0.0.0.0" {
		t.Errorf("Host override not applied: %s", conf.Conf.Host)
	}
	if conf.Conf.HttpPort != 9999 {
		t.Errorf("HttpPort override not applied: %d", conf.Conf.HttpPort)
	}
	if conf.Conf.Domain != "bridge.example.org" {
		t.Errorf("Domain override not applied: %s", conf.Conf.Domain)
	}
	if conf.HostURL() != "https://bridge.example.org/" {
		t.Errorf("Unexpected host URL: %s", conf.HostURL())
	}
}

func TestReadConfDefaultProtocol(t *testing.T) {
	t.Setenv("FEDBRIDGE_DOMAIN", "bridge.example.org")

	conf, err := ReadConf()
	if err != nil {
		t.Fatalf("ReadConf failed: %v", err)
	}
	if conf.Conf.Protocol == "" {
		t.Error("Expected a protocol default")
	}
}
