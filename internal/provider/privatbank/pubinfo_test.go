package privatbank_test

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ratebot/internal/provider"
	"ratebot/internal/provider/privatbank"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "https://api.privatbank.ua/p24api/pubinfo?exchange&coursid=5", req.URL.String())

			return jsonResponse(http.StatusOK, `[
				{"ccy": "EUR", "base_ccy": "UAH", "buy": 39.0, "sale": 39.8},
				{"ccy": "USD", "base_ccy": "UAH", "buy": "36.6", "sale": "37.1"}
			]`), nil
		}).
		Times(1)

	client := privatbank.New(privatbank.WithHTTPClient(httpClient))

	// Act
	rates, err := client.FetchAll(t.Context())
	require.NoError(t, err)

	// Assert: buy maps to buy and sale to sell, numbers or strings alike.
	require.Len(t, rates, 2)
	require.Equal(t, "39", rates[provider.EUR].Buy.String())
	require.Equal(t, "39.8", rates[provider.EUR].Sell.String())
	require.Equal(t, "36.6", rates[provider.USD].Buy.String())
	require.Equal(t, "37.1", rates[provider.USD].Sell.String())
	require.Equal(t, provider.PrivatBank, client.Name())
}

func TestFetchAll_WithFixture(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)

	// Load the fixture data
	fixtureData, err := os.OpenFile("fixtures/pubinfo.json", os.O_RDONLY, 0600)
	require.NoError(t, err)

	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Body: fixtureData}, nil).
		Times(1)

	rates, err := privatbank.New(privatbank.WithHTTPClient(httpClient)).FetchAll(t.Context())
	require.NoError(t, err)

	require.True(t, decimal.RequireFromString("41.1").Equal(rates[provider.USD].Buy))
	require.True(t, decimal.RequireFromString("41.6").Equal(rates[provider.USD].Sell))
	require.True(t, decimal.RequireFromString("44.5").Equal(rates[provider.EUR].Buy))
	require.True(t, decimal.RequireFromString("45.5").Equal(rates[provider.EUR].Sell))
}

func TestFetchAll_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		res     *http.Response
		err     error
		wantErr error
	}{
		{
			name:    "missing USD record",
			res:     jsonResponse(http.StatusOK, `[{"ccy": "EUR", "base_ccy": "UAH", "buy": "39.0", "sale": "39.8"}]`),
			wantErr: provider.ErrNoRecord,
		},
		{
			name: "USD quoted against another base",
			res: jsonResponse(http.StatusOK, `[
				{"ccy": "EUR", "base_ccy": "UAH", "buy": "39.0", "sale": "39.8"},
				{"ccy": "USD", "base_ccy": "EUR", "buy": "0.9", "sale": "0.95"}
			]`),
			wantErr: provider.ErrNoRecord,
		},
		{
			name: "record without sale",
			res: jsonResponse(http.StatusOK, `[
				{"ccy": "EUR", "base_ccy": "UAH", "buy": "39.0"},
				{"ccy": "USD", "base_ccy": "UAH", "buy": "36.6", "sale": "37.1"}
			]`),
			wantErr: provider.ErrNoRecord,
		},
		{
			name:    "rate limited",
			res:     jsonResponse(http.StatusTooManyRequests, ``),
			wantErr: provider.ErrRateLimited,
		},
		{
			name:    "bad gateway",
			res:     jsonResponse(http.StatusBadGateway, `<html></html>`),
			wantErr: provider.ErrUpstream,
		},
		{
			name:    "xml body",
			res:     jsonResponse(http.StatusOK, `<exchangerates></exchangerates>`),
			wantErr: provider.ErrUpstream,
		},
		{
			name:    "transport failure",
			err:     errors.New("dial tcp: i/o timeout"),
			wantErr: provider.ErrUpstream,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().Do(gomock.Any()).Return(tc.res, tc.err).Times(1)

			rates, err := privatbank.New(privatbank.WithHTTPClient(httpClient)).FetchAll(t.Context())
			require.Nil(t, rates)
			require.ErrorIs(t, err, tc.wantErr)

			var ue *provider.UpstreamError
			require.ErrorAs(t, err, &ue)
			require.Equal(t, provider.PrivatBank, ue.Provider)
		})
	}
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "http://localhost:8080/p24api/pubinfo?exchange&coursid=5", req.URL.String())
			require.Equal(t, "bar", req.Header.Get("foo"))
			return jsonResponse(http.StatusOK, `[
				{"ccy": "EUR", "base_ccy": "UAH", "buy": "39.0", "sale": "39.8"},
				{"ccy": "USD", "base_ccy": "UAH", "buy": "36.6", "sale": "37.1"}
			]`), nil
		}).
		Times(1)

	client := privatbank.New(
		privatbank.WithHTTPClient(httpClient),
		privatbank.WithBaseURL("http://localhost:8080"),
		privatbank.WithHeader(http.Header{"foo": []string{"bar"}}),
	)

	_, err := client.FetchAll(t.Context())
	require.NoError(t, err)
}
