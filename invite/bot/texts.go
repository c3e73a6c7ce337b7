package bot

// User-facing replies. The bot speaks Russian.
const (
	msgWelcome = "Привет! Я помогу создать приглашение на праздник.\n\n" +
		"/create — создать приглашение\n" +
		"/done — завершить и сгенерировать\n" +
		"/stats — мои приглашения\n" +
		"/help — справка"

	msgHelp = "Команды:\n" +
		"/create — начать создание приглашения\n" +
		"/done — завершить загрузку фото и сгенерировать приглашение\n" +
		"/stats — показать мои приглашения\n" +
		"/help — эта справка"

	msgIdleHint = "Чтобы создать приглашение, отправьте /create."

	msgAskType      = "Какое событие празднуем? Например: день рождения, свадьба, юбилей."
	msgAskName      = "Как назовём праздник? Например: Дашин праздник."
	msgAskDate      = "Когда состоится событие? Например: 20 июля."
	msgAskTime      = "Во сколько? Например: 18:00."
	msgAskLocation  = "Где пройдёт праздник? Укажите адрес или место."
	msgAskStyle     = "Выберите стиль оформления:"
	msgStyleButtons = "Пожалуйста, выберите стиль кнопкой ниже."

	msgAskMedia = "Отлично! Теперь пришлите фотографии для приглашения.\n" +
		"Когда закончите, отправьте /done."

	msgEmptyField = "Поле не может быть пустым, попробуйте ещё раз."

	msgNotCreating = "Сначала начните создание приглашения: /create."
	msgBusy        = "Уже генерирую приглашение, минутку..."

	msgPhotoTooLarge    = "Файл слишком большой (лимит 20 МБ). Пришлите фото поменьше."
	msgPhotoUnsupported = "Это не похоже на изображение. Пришлите фото или файл-картинку."
	msgPhotoRetry       = "Не получилось сохранить фото, попробуйте прислать его ещё раз."

	msgGenerating     = "Генерирую приглашение, это займёт меньше минуты..."
	msgGenerateFailed = "Не удалось сгенерировать приглашение. Попробуйте ещё раз: /create."
	msgSaveFailed     = "Не удалось сохранить приглашение. Попробуйте ещё раз: /create."
	msgGenericError   = "Что-то пошло не так. Попробуйте ещё раз чуть позже."

	msgNoEvents      = "У вас пока нет приглашений. Создайте первое: /create."
	msgStatsHeader   = "Ваши приглашения:"
	msgEventNotFound = "Приглашение не найдено."
)
