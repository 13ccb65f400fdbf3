package http

import (
	"fmt"
	"time"

	"cashlog/internal/core"
	"cashlog/internal/services"
)

// Wire DTOs. The boundary always converts to and from typed core structs;
// handlers never pass raw maps around.

type itemDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Quantity     int64  `json:"quantity"`
	Total        string `json:"total"`
	MasterItemID string `json:"masterItemId,omitempty"`
}

type transactionDTO struct {
	ID               string    `json:"id"`
	Date             string    `json:"date"`
	Type             string    `json:"type"`
	Description      string    `json:"description"`
	Amount           string    `json:"amount"`
	PaymentImageRef  string    `json:"paymentImageRef,omitempty"`
	CategoryID       string    `json:"categoryId"`
	CategoryName     string    `json:"categoryName"`
	RelatedPartyID   string    `json:"relatedPartyId"`
	RelatedPartyName string    `json:"relatedPartyName"`
	Items            []itemDTO `json:"items"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type categoryDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type relatedPartyDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type masterItemDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Type         string    `json:"type"`
	DefaultPrice string    `json:"defaultPrice"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type reportRowDTO struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

// Request payloads.

type itemRequest struct {
	Name         string `json:"name"`
	Price        string `json:"price"`
	Quantity     int64  `json:"quantity"`
	MasterItemID string `json:"masterItemId"`
}

type transactionRequest struct {
	Date            string        `json:"date"`
	Type            string        `json:"type"`
	Description     string        `json:"description"`
	Amount          *string       `json:"amount"`
	PaymentImageRef string        `json:"paymentImageRef"`
	CategoryID      string        `json:"categoryId"`
	RelatedPartyID  string        `json:"relatedPartyId"`
	Items           []itemRequest `json:"items"`
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type relatedPartyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type masterItemRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	DefaultPrice string `json:"defaultPrice"`
}

// toInput converts a wire request into a service input, collecting parse
// failures into a ValidationError so the service sees typed values only.
func (req transactionRequest) toInput() (services.TransactionInput, error) {
	ve := core.NewValidationError()

	in := services.TransactionInput{
		Type:            core.TransactionType(req.Type),
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		RelatedPartyID:  req.RelatedPartyID,
		PaymentImageRef: req.PaymentImageRef,
	}

	if req.Date == "" {
		ve.Add("date", "is required")
	} else if d, err := core.ParseDate(req.Date); err != nil {
		ve.Add("date", "must be YYYY-MM-DD")
	} else {
		in.Date = d
	}

	if req.Amount != nil {
		if m, err := core.ParseAmount(*req.Amount); err != nil {
			ve.Add("amount", "must be a non-negative decimal")
		} else {
			in.Amount = m
			in.HasAmount = true
		}
	}

	for i, it := range req.Items {
		item := services.ItemInput{
			Name:         it.Name,
			Quantity:     it.Quantity,
			MasterItemID: it.MasterItemID,
		}
		if m, err := core.ParseAmount(it.Price); err != nil {
			ve.Add(fmt.Sprintf("items[%d].price", i), "must be a non-negative decimal")
		} else {
			item.Price = m
		}
		in.Items = append(in.Items, item)
	}

	if err := ve.OrNil(); err != nil {
		return in, err
	}
	return in, nil
}

func toItemDTO(it core.Item) itemDTO {
	return itemDTO{
		ID:           it.ID,
		Name:         it.Name,
		Price:        it.Price.String(),
		Quantity:     it.Quantity,
		Total:        it.Total.String(),
		MasterItemID: it.MasterItemID,
	}
}

func toTransactionDTO(tx *core.Transaction) transactionDTO {
	items := make([]itemDTO, 0, len(tx.Items))
	for _, it := range tx.Items {
		items = append(items, toItemDTO(it))
	}
	return transactionDTO{
		ID:               tx.ID,
		Date:             tx.Date.String(),
		Type:             string(tx.Type),
		Description:      tx.Description,
		Amount:           tx.Amount.String(),
		PaymentImageRef:  tx.PaymentImageRef,
		CategoryID:       tx.CategoryID,
		CategoryName:     tx.CategoryName,
		RelatedPartyID:   tx.RelatedPartyID,
		RelatedPartyName: tx.RelatedPartyName,
		Items:            items,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
	}
}

func toCategoryDTO(c *core.Category) categoryDTO {
	return categoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        string(c.Type),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toRelatedPartyDTO(p *core.RelatedParty) relatedPartyDTO {
	return relatedPartyDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Type:        string(p.Type),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toMasterItemDTO(m *core.MasterItem) masterItemDTO {
	return masterItemDTO{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		Type:         string(m.Type),
		DefaultPrice: m.DefaultPrice.String(),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toReportRowDTO(r core.ReportRow) reportRowDTO {
	balance := core.Money{Cents: r.Income.Cents - r.Expense.Cents}
	return reportRowDTO{
		Key:     r.Key,
		Label:   r.Label,
		Income:  r.Income.String(),
		Expense: r.Expense.String(),
		Balance: balance.String(),
	}
}
