package bot

const msgHelp = `Я - бот ежедневного квиза.

Каждый день вас ждет один новый вопрос. Отвечайте без пропусков, чтобы растить серию:
за верный ответ начисляется 10 очков, умноженных на длину серии (максимум 5).

Команды:
/start - открыть квиз
/today - узнать, доступен ли сегодняшний вопрос
/stats - ваша серия и очки`

const msgStart = `Добро пожаловать в ежедневный квиз!` + "\n\n" + msgHelp

const msgOpenButton = `Открыть квиз`

const msgTodayOpen = `Вопрос дня ждет вас! Откройте квиз, чтобы ответить.`

const msgTodayDone = `Сегодня вы уже ответили. Приходите завтра за новым вопросом!`

const msgStats = `Серия: %d из %d
Очки в квизе: %d
Всего очков: %d`

const msgStatsLastStreak = "\nПоследний верный ответ: %s"

const msgUnavailable = `Сервис временно недоступен, попробуйте позже.`

const msgUnknownCommand = `Не знаю такой команды.` + "\n\n" + msgHelp
