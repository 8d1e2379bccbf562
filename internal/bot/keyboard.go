package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ratebot/internal/provider"
)

const (
	ButtonRates = "Курс валют"
	ButtonBack  = "Назад"

	TextPrompt         = "Натисніть на кнопку для отримання курсу:"
	TextChooseCurrency = "Оберіть валюту: "
	TextUnavailable    = "Курс тимчасово недоступний, спробуйте пізніше."
)

// MainMenu is the single "rates" button.
func MainMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonRates)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// CurrencyMenu lists the supported currencies on one row and "back" below.
func CurrencyMenu() tgbotapi.ReplyKeyboardMarkup {
	row := make([]tgbotapi.KeyboardButton, 0, len(provider.Supported))
	for _, c := range provider.Supported {
		row = append(row, tgbotapi.NewKeyboardButton(c.String()))
	}
	kb := tgbotapi.NewReplyKeyboard(
		row,
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}
