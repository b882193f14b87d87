package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/GrandsonfrmO/GRANDSON-PROJECT-SITE-KIRO-sub003/internal/usecase"
)

// ギニアの携帯番号（区切り文字除去後）
var guineaPhone = regexp.MustCompile(`^(?:\+224|00224)?(6\d{8})$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

type orderValidator struct{}

// Usecaseは interface を依存注入
func NewOrderValidator() usecase.OrderValidator {
	return &orderValidator{}
}

// チェックアウト入力を検証。最初の違反で止める。
// メール形式の誤りは拒否せず、メールを外して指摘として返す。
func (v *orderValidator) ValidateCheckout(ctx context.Context, in usecase.CheckoutInput) (usecase.CheckoutInput, []string, error) {
	var notes []string

	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	in.DeliveryZone = strings.TrimSpace(in.DeliveryZone)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)

	// 必須チェック
	if in.CustomerName == "" {
		return in, nil, usecase.NewValidationError("customerName", "Le nom du client est requis.")
	}

	if strings.TrimSpace(in.CustomerPhone) == "" {
		return in, nil, usecase.NewValidationError("customerPhone", "Le numéro de téléphone est requis.")
	}
	phone, ok := NormalizePhone(in.CustomerPhone)
	if !ok {
		return in, nil, usecase.NewValidationError("customerPhone",
			"Le numéro de téléphone doit être un numéro guinéen valide (ex. +224 621 00 00 01).")
	}
	in.CustomerPhone = phone

	if in.DeliveryAddress == "" {
		return in, nil, usecase.NewValidationError("deliveryAddress", "L'adresse de livraison est requise.")
	}

	if in.DeliveryFee < 0 {
		return in, nil, usecase.NewValidationError("deliveryFee", "Les frais de livraison ne peuvent pas être négatifs.")
	}
	if in.TotalAmount < 0 {
		return in, nil, usecase.NewValidationError("totalAmount", "Le montant total ne peut pas être négatif.")
	}

	if len(in.Items) == 0 {
		return in, nil, usecase.NewValidationError("items", "Le panier est vide.")
	}
	for i := range in.Items {
		it := &in.Items[i]
		it.ProductID = strings.TrimSpace(it.ProductID)
		it.Size = strings.TrimSpace(it.Size)

		if it.ProductID == "" {
			return in, nil, usecase.NewValidationError(fmt.Sprintf("items[%d].productId", i),
				fmt.Sprintf("Article %d : le produit est requis.", i+1))
		}
		if it.Quantity <= 0 {
			return in, nil, usecase.NewValidationError(fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("Article %d : la quantité doit être supérieure à zéro.", i+1))
		}
		if it.Price < 0 {
			return in, nil, usecase.NewValidationError(fmt.Sprintf("items[%d].price", i),
				fmt.Sprintf("Article %d : le prix ne peut pas être négatif.", i+1))
		}
	}

	// email形式（任意）
	if in.CustomerEmail != "" && !usecase.IsEmailLike(in.CustomerEmail) {
		notes = append(notes, fmt.Sprintf("Adresse e-mail ignorée car invalide : %s", in.CustomerEmail))
		in.CustomerEmail = ""
	}

	return in, notes, nil
}

// NormalizePhone は区切り文字を除いて +224XXXXXXXXX に揃える。
func NormalizePhone(raw string) (string, bool) {
	m := guineaPhone.FindStringSubmatch(phoneSeparators.Replace(strings.TrimSpace(raw)))
	if m == nil {
		return "", false
	}
	return "+224" + m[1], true
}
