package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultExpoTimeout = 10 * time.Second

// ExpoGateway submits push messages to the Expo push API. One Send call is
// one HTTP request carrying one chunk of messages.
type ExpoGateway struct {
	client   *resty.Client
	endpoint string
}

type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

type expoResponse struct {
	Data []expoTicket `json:"data"`
}

func NewExpoGateway(endpoint string, timeout time.Duration) (*ExpoGateway, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultExpoTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewExpoGatewayWithClient(endpoint, client)
}

func NewExpoGatewayWithClient(endpoint string, client *resty.Client) (*ExpoGateway, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultExpoTimeout)
	}
	client.SetRetryCount(0)

	return &ExpoGateway{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (g *ExpoGateway) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("gateway is not initialized")
	}
	if len(messages) == 0 {
		return nil, nil
	}

	var parsed expoResponse
	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(messages).
		SetResult(&parsed).
		Post(g.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    gatewayErrorMessage(statusCode, strings.TrimSpace(response.String())),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	if len(parsed.Data) != len(messages) {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message: fmt.Sprintf("gateway returned %d tickets for %d messages",
				len(parsed.Data), len(messages)),
			Transient: true,
		}
	}

	tickets := make([]Ticket, 0, len(parsed.Data))
	for _, t := range parsed.Data {
		status := TicketError
		if strings.EqualFold(t.Status, string(TicketOK)) {
			status = TicketOK
		}
		tickets = append(tickets, Ticket{
			Status:  status,
			ID:      t.ID,
			Message: t.Message,
		})
	}

	return tickets, nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
