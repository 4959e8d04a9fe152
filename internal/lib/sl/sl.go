// Package sl — небольшие помощники для структурированного логирования slog.
package sl

import "log/slog"

// Err кладёт текст ошибки в атрибут с ключом "error". Единый ключ
// упрощает поиск отказов по логам сервиса:
//
//	log.Warn("failed to publish event", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}
