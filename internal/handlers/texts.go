package handlers

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Callback data of the start keyboard buttons.
const (
	callbackHelp   = "help"
	callbackInvite = "invite"
	callbackEvent  = "event"
)

const (
	startText = "Приветствую тебя, Шарьинец! Прочитайте описание или воспользуйтесь кнопкой Помощь:"
	helpText  = "Список моих возможностей:\n" +
		"• Приглашение - получить пригласительную ссылку\n" +
		"• Мероприятие - отметить всех и указать причину\n" +
		"• Сообщение 'Я уехал' - временно покинуть группу"

	inviteLinkText      = "Милости прошу к нашему шалашу: %s"
	inviteNoRightsText  = "Бот не имеет прав для создания пригласительной ссылки."
	inviteNotMemberText = "Вы не состоите в группе."
	inviteNoChatsText   = "Чаты ещё не настроены. Администратор должен выполнить /set_chats."
	inviteFailedText    = "Не удалось получить ссылку, попробуйте позже."
	openPrivateText     = "Напишите боту в личные сообщения и повторите."

	eventOnlyGroupText = "Эта функция работает только в группе."
	eventPromptText    = "Введите текст для мероприятия:"
	eventMembersText   = "Не удалось получить список участников."
	eventExpiredText   = "Время ожидания истекло, нажмите «Мероприятие» ещё раз."
	eventPostedText    = "Мероприятие опубликовано."

	departureChatText = "Уважаемый %s сообщил, что уехал, и был временно исключен из группы."
	departureUserText = "Вы были временно исключены из группы."

	welcomeText = "Приветствую, %s! Добро пожаловать!"

	setChatsUsageText  = "Используйте формат: /set_chats <inviting_chat_id> <invited_chat_id>"
	setChatsDoneText   = "ID чатов установлены:\nINVITING_CHAT: %d\nINVITED_CHAT: %d"
	setChatsFailedText = "Не удалось сохранить настройки чатов."
	forbiddenText      = "Недостаточно прав для этой команды."
	unknownCommandText = "Неизвестная команда. Используйте /start"
)

func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Помощь", callbackHelp)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Приглашение", callbackInvite)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Мероприятие", callbackEvent)),
	)
}
