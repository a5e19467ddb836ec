package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// PublicIP asks an echo service for the address requests leave from
func PublicIP(ctx context.Context, lookupURL string) (string, error) {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2)

	resp, err := client.R().SetContext(ctx).Get(lookupURL)
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", lookupURL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ip lookup returned status %d", resp.StatusCode())
	}

	ip := strings.TrimSpace(resp.String())
	if ip == "" {
		return "", fmt.Errorf("ip lookup returned an empty body")
	}
	return ip, nil
}

// LogPublicIP logs the egress address; failures only warn
func LogPublicIP(ctx context.Context, lookupURL string) {
	if lookupURL == "" {
		return
	}
	ip, err := PublicIP(ctx, lookupURL)
	if err != nil {
		slog.Warn("could not determine public IP", "err", err)
		return
	}
	slog.Info("public IP", "ip", ip)
}
