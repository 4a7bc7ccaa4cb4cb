// Package escrow содержит чистую арифметику расчётов между покупателем,
// исполнителем и площадкой. Функции пакета не трогают хранилище: они
// возвращают Settlement — список изменений балансов и записей леджера,
// который репозиторий применяет одной транзакцией БД.
package escrow

import (
	"github.com/google/uuid"

	"github.com/dkravtsov/marketplace-backend/internal/models"
)

// Flow определяет, каким жизненным циклом порождено движение средств:
// прямой покупкой услуги или заявкой с принятым предложением.
type Flow int

const (
	FlowPurchase Flow = iota
	FlowRequest
)

// BalanceDelta — изменение баланса одного пользователя.
// AllowOverdraft разрешает уход свободного баланса в минус; используется
// единственным местом — штрафом исполнителю при charge_both.
type BalanceDelta struct {
	UserID         uuid.UUID
	Available      float64
	Frozen         float64
	AllowOverdraft bool
}

// Entry — шаблон записи леджера. UserID равный nil означает счёт площадки.
type Entry struct {
	UserID      *uuid.UUID
	Direction   string
	Amount      float64
	Reason      string
	Description string
}

// Settlement — атомарный итог одного бизнес-события: изменения балансов
// пользователей, изменение баланса площадки и записи леджера. Суммы
// согласованы: каждое изменение баланса покрыто записями леджера.
type Settlement struct {
	Deltas   []BalanceDelta
	Platform float64
	Entries  []Entry
}

// AsDisputeResolution переписывает основания всех записей на dispute_resolution.
// Применяется сервисом споров к расчётам, выполненным по решению администратора.
func (s Settlement) AsDisputeResolution() Settlement {
	out := s
	out.Entries = make([]Entry, len(s.Entries))
	copy(out.Entries, s.Entries)
	for i := range out.Entries {
		out.Entries[i].Reason = models.TransactionReasonDisputeResolution
	}
	return out
}

// Freeze переводит amount из свободного баланса плательщика в замороженный.
// Свободный баланс не может уйти в минус: репозиторий вернёт
// ErrInsufficientFunds при применении.
func Freeze(payer uuid.UUID, amount float64, flow Flow) Settlement {
	reason := models.TransactionReasonServicePayment
	description := "Заморозка средств за покупку услуги"
	if flow == FlowRequest {
		reason = models.TransactionReasonCustomRequestPayment
		description = "Заморозка средств по принятому предложению"
	}
	return Settlement{
		Deltas: []BalanceDelta{
			{UserID: payer, Available: -amount, Frozen: amount},
		},
		Entries: []Entry{
			{UserID: &payer, Direction: models.TransactionDirectionDebit, Amount: amount, Reason: reason, Description: description},
		},
	}
}

// Release закрывает эскроу в пользу исполнителя: комиссия площадки
// удерживается из полной суммы, остаток зачисляется исполнителю.
// Гарантия сохранения суммы: payeeCut + platformCut == amount.
func Release(payer, payee uuid.UUID, amount, commissionRate float64, flow Flow) Settlement {
	platformCut := amount * commissionRate
	payeeCut := amount - platformCut

	incomeReason := models.TransactionReasonServiceIncome
	if flow == FlowRequest {
		incomeReason = models.TransactionReasonCustomRequestIncome
	}

	return Settlement{
		Deltas: []BalanceDelta{
			{UserID: payer, Frozen: -amount},
			{UserID: payee, Available: payeeCut},
		},
		Platform: platformCut,
		Entries: []Entry{
			{UserID: &payer, Direction: models.TransactionDirectionDebit, Amount: amount, Reason: models.TransactionReasonFundRelease, Description: "Списание средств из эскроу"},
			{UserID: &payee, Direction: models.TransactionDirectionCredit, Amount: payeeCut, Reason: incomeReason, Description: "Оплата выполненной работы"},
			{UserID: nil, Direction: models.TransactionDirectionCredit, Amount: platformCut, Reason: models.TransactionReasonPlatformCommission, Description: "Комиссия площадки"},
		},
	}
}

// Refund возвращает замороженную сумму плательщику целиком, без комиссии.
func Refund(payer uuid.UUID, amount float64) Settlement {
	return Settlement{
		Deltas: []BalanceDelta{
			{UserID: payer, Available: amount, Frozen: -amount},
		},
		Entries: []Entry{
			{UserID: &payer, Direction: models.TransactionDirectionCredit, Amount: amount, Reason: models.TransactionReasonFundRelease, Description: "Возврат средств из эскроу"},
		},
	}
}

// Split делит сумму пополам после удержания комиссии с полной цены:
// плательщик получает половину обратно, исполнитель — вторую половину.
// half + half + platformCut == amount.
func Split(payer, payee uuid.UUID, amount, commissionRate float64) Settlement {
	platformCut := amount * commissionRate
	half := (amount - platformCut) / 2

	return Settlement{
		Deltas: []BalanceDelta{
			{UserID: payer, Available: half, Frozen: -amount},
			{UserID: payee, Available: half},
		},
		Platform: platformCut,
		Entries: []Entry{
			{UserID: &payer, Direction: models.TransactionDirectionCredit, Amount: half, Reason: models.TransactionReasonDisputeResolution, Description: "Частичный возврат по решению спора"},
			{UserID: &payee, Direction: models.TransactionDirectionCredit, Amount: half, Reason: models.TransactionReasonDisputeResolution, Description: "Частичная оплата по решению спора"},
			{UserID: nil, Direction: models.TransactionDirectionCredit, Amount: platformCut, Reason: models.TransactionReasonPlatformCommission, Description: "Комиссия площадки"},
		},
	}
}

// ChargeBoth штрафует обе стороны: плательщик получает назад сумму за
// вычетом штрафа, исполнитель платит такой же штраф со свободного баланса,
// площадка получает оба штрафа. Баланс исполнителя при этом может уйти
// в минус — поведение сохранено намеренно.
func ChargeBoth(payer, payee uuid.UUID, amount, penaltyRate float64) Settlement {
	penalty := amount * penaltyRate

	return Settlement{
		Deltas: []BalanceDelta{
			{UserID: payer, Available: amount - penalty, Frozen: -amount},
			{UserID: payee, Available: -penalty, AllowOverdraft: true},
		},
		Platform: 2 * penalty,
		Entries: []Entry{
			{UserID: &payer, Direction: models.TransactionDirectionDebit, Amount: penalty, Reason: models.TransactionReasonDisputeResolution, Description: "Штраф заказчику по решению спора"},
			{UserID: &payee, Direction: models.TransactionDirectionDebit, Amount: penalty, Reason: models.TransactionReasonDisputeResolution, Description: "Штраф исполнителю по решению спора"},
			{UserID: nil, Direction: models.TransactionDirectionCredit, Amount: 2 * penalty, Reason: models.TransactionReasonDisputeResolution, Description: "Штрафы сторон спора"},
		},
	}
}
