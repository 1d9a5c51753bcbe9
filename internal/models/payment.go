package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Payment is an append-only record of one payment attempt. Only Status ever changes,
// and only away from PENDING.
type Payment struct {
	ID              string
	AccountID       string
	Amount          int64
	Currency        string
	ExternalOrderID string
	Status          PaymentStatus
	Purpose         PaymentPurpose
	SubscriptionID  *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PurposeKind string

const (
	PurposeSubscription     PurposeKind = "subscription"
	PurposeBlogPurchase     PurposeKind = "blog_purchase"
	PurposeResourcePurchase PurposeKind = "resource_purchase"
)

// PaymentPurpose describes what a payment buys. The set of implementations is closed:
// SubscriptionPurpose, BlogPurchasePurpose and ResourcePurchasePurpose.
type PaymentPurpose interface {
	Kind() PurposeKind
	isPaymentPurpose()
}

type SubscriptionPurpose struct {
	PlanID         string `json:"planId"`
	SubscriptionID string `json:"subscriptionId"`
}

type BlogPurchasePurpose struct {
	BlogID string `json:"blogId"`
}

type ResourcePurchasePurpose struct {
	ResourceID string `json:"resourceId"`
}

func (SubscriptionPurpose) Kind() PurposeKind     { return PurposeSubscription }
func (BlogPurchasePurpose) Kind() PurposeKind     { return PurposeBlogPurchase }
func (ResourcePurchasePurpose) Kind() PurposeKind { return PurposeResourcePurchase }

func (SubscriptionPurpose) isPaymentPurpose()     {}
func (BlogPurchasePurpose) isPaymentPurpose()     {}
func (ResourcePurchasePurpose) isPaymentPurpose() {}

// PurchasePurposeFor returns the purchase purpose matching the content kind.
func PurchasePurposeFor(item ContentItem) PaymentPurpose {
	if item.Kind == ContentKindResource {
		return ResourcePurchasePurpose{ResourceID: item.ID}
	}
	return BlogPurchasePurpose{BlogID: item.ID}
}

// PurchasedContentID returns the content a purchase purpose pays for. It reports false for
// subscription purposes.
func PurchasedContentID(p PaymentPurpose) (string, bool) {
	switch v := p.(type) {
	case BlogPurchasePurpose:
		return v.BlogID, true
	case ResourcePurchasePurpose:
		return v.ResourceID, true
	default:
		return "", false
	}
}

type purposeEnvelope struct {
	Kind PurposeKind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalPurpose encodes p as {"kind": ..., "data": {...}}.
func MarshalPurpose(p PaymentPurpose) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("payment purpose is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(purposeEnvelope{Kind: p.Kind(), Data: data})
}

// UnmarshalPurpose decodes the envelope written by MarshalPurpose back into its variant.
func UnmarshalPurpose(raw []byte) (PaymentPurpose, error) {
	var env purposeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode purpose envelope: %w", err)
	}

	switch env.Kind {
	case PurposeSubscription:
		var p SubscriptionPurpose
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode subscription purpose: %w", err)
		}
		return p, nil
	case PurposeBlogPurchase:
		var p BlogPurchasePurpose
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode blog purchase purpose: %w", err)
		}
		return p, nil
	case PurposeResourcePurchase:
		var p ResourcePurchasePurpose
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode resource purchase purpose: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown payment purpose %q", env.Kind)
	}
}
