package domain

import "errors"

var (
	// ErrInvalidHorizon возвращается, если горизонт синхронизации вне диапазона [1, 60].
	ErrInvalidHorizon = errors.New("invalid number of days to sync, should be between 1 and 60")
	// ErrInvalidJobName: имя задачи не входит в список известных задач.
	ErrInvalidJobName = errors.New("invalid cron job name")
	// ErrJobNotFound возвращается, если задача отсутствует в хранилище.
	ErrJobNotFound = errors.New("cron job not found")
	// Ошибка неизвестного дня недели.
	ErrInvalidDay = errors.New("invalid day of week")
	// ErrProviderUnavailable: upstream-провайдер не вернул инвентарь (сеть, таймаут, не-2xx).
	ErrProviderUnavailable = errors.New("inventory provider unavailable")
	// ErrSlotPayloadInvalid: слот от провайдера не проходит базовую проверку.
	ErrSlotPayloadInvalid = errors.New("slot payload is invalid")
	// ErrSlotNotFound возвращается, если слот не найден по providerSlotId.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrProductNotFound возвращается, если продукта нет в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidDate: дата в запросе отсутствует или не разбирается.
	ErrInvalidDate = errors.New("date is required in YYYY-MM-DD format")
	// ErrLockWaitTimeout: транзакция не получила соединение или блокировку за MaxWait.
	ErrLockWaitTimeout = errors.New("lock wait timeout exceeded")
)

// IsValidationError сообщает, относится ли ошибка к ошибкам валидации входа.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidHorizon) ||
		errors.Is(err, ErrInvalidJobName) ||
		errors.Is(err, ErrInvalidDay) ||
		errors.Is(err, ErrInvalidDate)
}
