package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReceiptStatus string

const (
	ReceiptAwaitingUnloading ReceiptStatus = "AWAITING_UNLOADING"
	ReceiptUnloading         ReceiptStatus = "UNLOADING"
	ReceiptMovedToBay        ReceiptStatus = "MOVED_TO_BAY"
	ReceiptAllocated         ReceiptStatus = "ALLOCATED"
	ReceiptReadyForPicking   ReceiptStatus = "READY_FOR_PICKING"
	ReceiptCompleted         ReceiptStatus = "COMPLETED"
	ReceiptCancelled         ReceiptStatus = "CANCELLED"
)

func (s ReceiptStatus) Valid() bool {
	switch s {
	case ReceiptAwaitingUnloading, ReceiptUnloading, ReceiptMovedToBay, ReceiptAllocated,
		ReceiptReadyForPicking, ReceiptCompleted, ReceiptCancelled:
		return true
	}
	return false
}

func (s ReceiptStatus) Terminal() bool {
	switch s {
	case ReceiptCompleted, ReceiptCancelled:
		return true
	case ReceiptAwaitingUnloading, ReceiptUnloading, ReceiptMovedToBay, ReceiptAllocated,
		ReceiptReadyForPicking:
		return false
	}
	return false
}

// Derived statuses are only entered as a side effect of allocation.
func (s ReceiptStatus) Derived() bool {
	return s == ReceiptReadyForPicking
}

type VendorType string

const (
	VendorSKU  VendorType = "SKU"
	VendorFlat VendorType = "FLAT"
)

func (t VendorType) Valid() bool {
	switch t {
	case VendorSKU, VendorFlat:
		return true
	}
	return false
}

type InboundReceipt struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Code           string        `gorm:"size:64;uniqueIndex;not null" json:"code"`
	WarehouseID    uuid.UUID     `gorm:"type:uuid;index;not null" json:"warehouse_id"`
	VendorID       uuid.UUID     `gorm:"type:uuid;index;not null" json:"vendor_id"`
	VendorType     VendorType    `gorm:"size:8;not null;default:SKU" json:"vendor_type"`
	Reference      string        `gorm:"size:128" json:"reference"`
	PlannedArrival *time.Time    `json:"planned_arrival"`
	ActualArrival  *time.Time    `json:"actual_arrival"`
	Status         ReceiptStatus `gorm:"size:32;not null;default:AWAITING_UNLOADING;index" json:"status"`
	Notes          string        `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Lines []InboundReceiptLine `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE" json:"lines"`
}

func (r *InboundReceipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = ReceiptAwaitingUnloading
	}
	return nil
}

// FullyBound reports whether every line holds a bin. A receipt without lines is not.
func (r InboundReceipt) FullyBound() bool {
	if len(r.Lines) == 0 {
		return false
	}
	for _, l := range r.Lines {
		if l.BinID == nil {
			return false
		}
	}
	return true
}

type InboundReceiptLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiptID uuid.UUID `gorm:"type:uuid;index;not null" json:"receipt_id"`
	LineNo    int       `gorm:"not null" json:"line_no"`

	// SKU mode
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductSKU  string     `gorm:"size:64" json:"product_sku"`
	ProductName string     `gorm:"size:255" json:"product_name"`

	// FLAT mode
	CustomerID   *uuid.UUID `gorm:"type:uuid" json:"customer_id"`
	CustomerName string     `gorm:"size:255" json:"customer_name"`
	Apartment    string     `gorm:"size:64" json:"apartment"`

	Quantity    int  `gorm:"not null;default:1" json:"quantity"`
	ReceivedQty *int `json:"received_qty"`
	Damaged     *int `json:"damaged"`
	Missing     *int `json:"missing"`

	BinID *uuid.UUID `gorm:"type:uuid;index" json:"bin_id"`
	Bin   *Bin       `gorm:"foreignKey:BinID" json:"bin,omitempty"`

	Notes     string    `gorm:"size:512" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *InboundReceiptLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Quantity <= 0 {
		l.Quantity = 1
	}
	return nil
}
