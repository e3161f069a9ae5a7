package invest

import (
	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
)

// liveOrders talks to the real orders service.
type liveOrders struct {
	client *investgo.OrdersServiceClient
}

func (l liveOrders) postOrder(req *investgo.PostOrderRequest) (string, error) {
	resp, err := l.client.PostOrder(req)
	if err != nil {
		return "", err
	}
	return resp.GetOrderId(), nil
}

func (l liveOrders) orderState(accountID, orderID string) (orderStateView, error) {
	resp, err := l.client.GetOrderState(accountID, orderID, pb.PriceType_PRICE_TYPE_UNSPECIFIED, nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (l liveOrders) cancelOrder(accountID, orderID string) error {
	_, err := l.client.CancelOrder(accountID, orderID, nil)
	return err
}

func (l liveOrders) openOrders(accountID string) ([]orderStateView, error) {
	resp, err := l.client.GetOrders(accountID, nil)
	if err != nil {
		return nil, err
	}
	orders := resp.GetOrders()
	out := make([]orderStateView, 0, len(orders))
	for _, order := range orders {
		out = append(out, order)
	}
	return out, nil
}

// sandboxOrders routes everything through the sandbox service.
type sandboxOrders struct {
	client *investgo.SandboxServiceClient
}

func (s sandboxOrders) postOrder(req *investgo.PostOrderRequest) (string, error) {
	resp, err := s.client.PostSandboxOrder(req)
	if err != nil {
		return "", err
	}
	return resp.GetOrderId(), nil
}

func (s sandboxOrders) orderState(accountID, orderID string) (orderStateView, error) {
	resp, err := s.client.GetSandboxOrderState(accountID, orderID)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s sandboxOrders) cancelOrder(accountID, orderID string) error {
	_, err := s.client.CancelSandboxOrder(accountID, orderID)
	return err
}

func (s sandboxOrders) openOrders(accountID string) ([]orderStateView, error) {
	resp, err := s.client.GetSandboxOrders(accountID)
	if err != nil {
		return nil, err
	}
	orders := resp.GetOrders()
	out := make([]orderStateView, 0, len(orders))
	for _, order := range orders {
		out = append(out, order)
	}
	return out, nil
}
