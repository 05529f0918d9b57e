package domain

import "fmt"

// ItemState — состояние товара на маркетплейсе (approve_status).
type ItemState string

const (
	// ItemListed — товар выставлен на продажу.
	ItemListed ItemState = "onsale"

	// ItemUnlisted — товар снят и лежит на складе.
	ItemUnlisted ItemState = "instock"
)

// Opposite возвращает состояние, в которое переводит один toggle.
// Для прочих состояний возвращает само состояние.
func (s ItemState) Opposite() ItemState {
	switch s {
	case ItemListed:
		return ItemUnlisted
	case ItemUnlisted:
		return ItemListed
	default:
		return s
	}
}

// Item — товар из каталога продавца.
//
// ApproveStatus меняется как побочный эффект toggle и перечитывается
// воркером после каждой попытки.
type Item struct {
	// NumIID — стабильный числовой идентификатор товара.
	NumIID int64 `json:"num_iid"`

	// Title — название товара (для журнала).
	Title string `json:"title"`

	// ApproveStatus — текущее состояние товара.
	ApproveStatus ItemState `json:"approve_status"`
}

// ParseItemState разбирает "onsale" / "instock".
func ParseItemState(s string) (ItemState, error) {
	switch st := ItemState(s); st {
	case ItemListed, ItemUnlisted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown item state %q (want %q or %q)", s, ItemListed, ItemUnlisted)
	}
}
