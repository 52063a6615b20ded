package billing

import (
	"context"
	"errors"
	"sync"
)

// ErrNoMockResponse is returned when a MockClient queue is empty
var ErrNoMockResponse = errors.New("mock billing: no response queued")

// MockResponse is a canned response for one MockClient call
type MockResponse struct {
	CustomerInfo *CustomerInfo
	Offerings    *Offerings
	Outcome      PurchaseOutcome
	Err          error
}

// MockClient is a deterministic Client for testing.
// Each method returns canned responses in FIFO order and all calls are recorded.
// Configure succeeds when its queue is empty.
type MockClient struct {
	mu           sync.Mutex
	configure    []error
	customerInfo []MockResponse
	offerings    []MockResponse
	purchases    []MockResponse
	restores     []MockResponse

	Calls         []string
	ConfiguredKey string
	Purchased     []Package
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) QueueConfigure(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configure = append(m.configure, err)
	return m
}

func (m *MockClient) QueueCustomerInfo(info *CustomerInfo, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customerInfo = append(m.customerInfo, MockResponse{CustomerInfo: info, Err: err})
	return m
}

func (m *MockClient) QueueOfferings(o *Offerings, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offerings = append(m.offerings, MockResponse{Offerings: o, Err: err})
	return m
}

func (m *MockClient) QueuePurchase(outcome PurchaseOutcome, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases = append(m.purchases, MockResponse{Outcome: outcome, Err: err})
	return m
}

func (m *MockClient) QueueRestore(info *CustomerInfo, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restores = append(m.restores, MockResponse{CustomerInfo: info, Err: err})
	return m
}

func (m *MockClient) Configure(_ context.Context, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "Configure")

	if len(m.configure) == 0 {
		m.ConfiguredKey = apiKey
		return nil
	}
	err := m.configure[0]
	m.configure = m.configure[1:]
	if err == nil {
		m.ConfiguredKey = apiKey
	}
	return err
}

func (m *MockClient) GetCustomerInfo(_ context.Context) (*CustomerInfo, error) {
	resp := m.next("GetCustomerInfo", &m.customerInfo)
	return resp.CustomerInfo, resp.Err
}

func (m *MockClient) GetOfferings(_ context.Context) (*Offerings, error) {
	resp := m.next("GetOfferings", &m.offerings)
	return resp.Offerings, resp.Err
}

func (m *MockClient) PurchasePackage(_ context.Context, pkg Package) (PurchaseOutcome, error) {
	m.mu.Lock()
	m.Purchased = append(m.Purchased, pkg)
	m.mu.Unlock()

	resp := m.next("PurchasePackage", &m.purchases)
	return resp.Outcome, resp.Err
}

func (m *MockClient) RestorePurchases(_ context.Context) (*CustomerInfo, error) {
	resp := m.next("RestorePurchases", &m.restores)
	return resp.CustomerInfo, resp.Err
}

// CallCount returns how many times method was called
func (m *MockClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *MockClient) next(method string, queue *[]MockResponse) MockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, method)

	if len(*queue) == 0 {
		return MockResponse{Err: ErrNoMockResponse}
	}
	resp := (*queue)[0]
	*queue = (*queue)[1:]
	return resp
}
