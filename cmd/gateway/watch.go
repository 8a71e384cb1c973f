package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var (
		baseURL string
		orderID int64
		key     string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Short-poll an order's payment status the way the storefront does",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := &watcher{
				baseURL: baseURL,
				client:  &http.Client{Timeout: 30 * time.Second},
				out:     cmd.OutOrStdout(),
			}
			status, err := w.Watch(cmd.Context(), orderID, key)
			if err != nil {
				return err
			}
			if status.Failed {
				return fmt.Errorf("payment failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "gateway base URL")
	cmd.Flags().Int64Var(&orderID, "order", 0, "order id")
	cmd.Flags().StringVar(&key, "key", "", "access key returned by checkout")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

type watcher struct {
	baseURL string
	client  *http.Client
	out     io.Writer
	// minWait floors the server's retry hint.
	minWait time.Duration
}

// Watch polls until the order settles or the poll window closes.
func (w *watcher) Watch(ctx context.Context, orderID int64, key string) (*api.PaymentStatus, error) {
	for {
		status, err := w.poll(ctx, orderID, key)
		if err != nil {
			return nil, err
		}

		switch {
		case status.Completed:
			fmt.Fprintf(w.out, "completed, redirect to %s\n", status.RedirectURL)
			return status, nil
		case status.Failed:
			fmt.Fprintln(w.out, "failed")
			return status, nil
		}

		fmt.Fprintf(w.out, "pending (%s)\n", status.RawStatus)
		if status.PollUntil != nil && time.Now().After(*status.PollUntil) {
			return status, fmt.Errorf("poll window closed at %s", status.PollUntil.Format(time.RFC3339))
		}

		wait := time.Duration(status.RetryAfterSeconds) * time.Second
		if wait < w.minWait {
			wait = w.minWait
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (w *watcher) poll(ctx context.Context, orderID int64, key string) (*api.PaymentStatus, error) {
	target := fmt.Sprintf("%s/orders/%d/payment-status?key=%s", w.baseURL, orderID, url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, e.Error.Message)
	}

	var body api.Envelope[api.PaymentStatus]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &body.Data, nil
}
