package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/letsssgooo/dailyquiz/internal/client"
)

// ErrValidation возвращается для сообщений, которые не являются командой.
var ErrValidation = errors.New("validation error")

// Команды бота
const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandToday = "today"
	CommandStats = "stats"
)

// menuCommands - меню команд, которое бот публикует при запуске.
var menuCommands = []client.BotCommand{
	{Command: CommandStart, Description: "Открыть квиз"},
	{Command: CommandToday, Description: "Доступен ли вопрос дня"},
	{Command: CommandStats, Description: "Серия и очки"},
	{Command: CommandHelp, Description: "Как устроен квиз"},
}

// ParseCommand валидирует сообщение пользователя и отдает имя команды без "/"
// и упоминания бота ("/stats@my_bot" -> "stats") и ее аргументы.
func ParseCommand(message string) (string, []string, error) {
	fields := strings.Fields(message)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, fmt.Errorf("%w, message is not a command", ErrValidation)
	}

	name := strings.TrimPrefix(fields[0], "/")
	name, _, _ = strings.Cut(name, "@")
	if name == "" {
		return "", nil, fmt.Errorf("%w, empty command", ErrValidation)
	}

	return strings.ToLower(name), fields[1:], nil
}
