package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "connector-vision/internal/application"
	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
	"connector-vision/internal/infrastructure/camera"
	"connector-vision/internal/infrastructure/storage"
)

const (
	msgStart = `👋 Привет! Я слежу за зазором разъёма на линии.

📋 Команды:
/status — последний результат и статистика
/models — список моделей
/use — переключить модель
/alerts on|off — уведомления о NG
/reset — сбросить статистику
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ /status показывает вердикт OK/NG и зазор по каждой линии
2️⃣ /use <имя> переключает модель разъёма
3️⃣ /alerts on — присылать сообщение при переходе в NG

📋 Команды:
/status /models /use /alerts /reset /cancel`

	msgAwaitingModel  = "✏️ Отправьте имя модели. /cancel — отмена."
	msgCancelled      = "❌ Операция отменена."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgSendCommand    = "ℹ️ Используйте /help для списка команд."
	msgNoOutcome      = "⏳ Результатов пока нет."
	msgNoModels       = "📂 Сохранённых моделей нет."
	msgModelNotFound  = "⚠️ Модель не найдена. /models — список моделей."
	msgModelError     = "⚠️ Не удалось переключить модель."
	msgStatsReset     = "🧹 Статистика сброшена."
	msgAlertsOn       = "🔔 Уведомления о NG включены."
	msgAlertsOff      = "🔕 Уведомления о NG выключены."
	msgAlertsUsage    = "Использование: /alerts on|off"
	msgRecovered      = "✅ Линия снова OK."
)

// Inspection: то, что бот использует из сервиса инспекции.
type Inspection interface {
	Latest() *entity.InspectionOutcome
	Stats() entity.InspectionStats
	ResetStats()
	ModelNames() ([]string, error)
	ActivateModel(name string) (*entity.InspectionSettings, error)
	CurrentModel() string
}

// CameraStatus: состояние камеры для /status.
type CameraStatus interface {
	Info() camera.Info
	CurrentFPS() float64
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot представляет Telegram-бота оператора
type Bot struct {
	api         *tgbotapi.BotAPI
	send        sender
	operators   *app.OperatorService
	inspection  Inspection
	camera      CameraStatus
	alertChatID int64
	logger      *zap.Logger
}

var _ port.AlertNotifier = (*Bot)(nil)

// NewBot создаёт нового бота
func NewBot(token string, operators *app.OperatorService, inspection Inspection, cam CameraStatus, alertChatID int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, operators, inspection, cam, alertChatID, logger)
	b.api = api
	b.logger.Info("authorized on account", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(s sender, operators *app.OperatorService, inspection Inspection, cam CameraStatus, alertChatID int64, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		send:        s,
		operators:   operators,
		inspection:  inspection,
		camera:      cam,
		alertChatID: alertChatID,
		logger:      logger,
	}
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot api is not configured")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	op, err := b.operators.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("get operator", zap.Error(err))
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, op)
		return
	}

	// Ждём имя модели после /use без аргумента
	if op.State == entity.StateAwaitingModelName {
		b.activateModel(ctx, msg, strings.TrimSpace(msg.Text))
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendCommand)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, op *entity.Operator) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.setIdle(ctx, msg)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "status":
		b.sendMessage(chatID, b.statusText())

	case "models":
		b.sendMessage(chatID, b.modelsText())

	case "use":
		name := strings.TrimSpace(msg.CommandArguments())
		if name == "" {
			if _, err := b.operators.BeginModelSelection(ctx, op.ID, chatID); err != nil {
				b.logger.Error("begin model selection", zap.Error(err))
			}
			b.sendMessage(chatID, msgAwaitingModel+"\n\n"+b.modelsText())
			return
		}
		b.activateModel(ctx, msg, name)

	case "alerts":
		arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
		if arg != "on" && arg != "off" {
			b.sendMessage(chatID, msgAlertsUsage)
			return
		}
		if _, err := b.operators.SetAlerts(ctx, op.ID, chatID, arg == "on"); err != nil {
			b.logger.Error("set alerts", zap.Error(err))
			return
		}
		if arg == "on" {
			b.sendMessage(chatID, msgAlertsOn)
		} else {
			b.sendMessage(chatID, msgAlertsOff)
		}

	case "reset":
		b.inspection.ResetStats()
		b.sendMessage(chatID, msgStatsReset)

	case "cancel":
		b.setIdle(ctx, msg)
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) activateModel(ctx context.Context, msg *tgbotapi.Message, name string) {
	b.setIdle(ctx, msg)

	settings, err := b.inspection.ActivateModel(name)
	switch {
	case errors.Is(err, storage.ErrModelNotFound), errors.Is(err, storage.ErrInvalidModelName):
		b.sendMessage(msg.Chat.ID, msgModelNotFound)
		return
	case err != nil:
		b.logger.Error("activate model", zap.String("model", name), zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgModelError)
		return
	}

	b.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Модель %q активна: линий %d, порог %.0f, режим %s.",
		name, len(settings.MeasurementLines), settings.GapThreshold, settings.EdgeDetectionMode))
}

func (b *Bot) setIdle(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := b.operators.Cancel(ctx, msg.From.ID, msg.Chat.ID); err != nil {
		b.logger.Error("reset operator state", zap.Error(err))
	}
}

func (b *Bot) statusText() string {
	var sb strings.Builder

	model := b.inspection.CurrentModel()
	if model == "" {
		model = "—"
	}
	fmt.Fprintf(&sb, "📦 Модель: %s\n", model)

	if b.camera != nil {
		info := b.camera.Info()
		if info.Running {
			fmt.Fprintf(&sb, "📷 Камера %d: %s, %.1f fps\n", info.DeviceIndex, info, b.camera.CurrentFPS())
		} else {
			sb.WriteString("📷 Камера не запущена\n")
		}
	}

	outcome := b.inspection.Latest()
	if outcome == nil {
		sb.WriteString(msgNoOutcome + "\n")
	} else {
		sb.WriteString(outcomeText(outcome))
	}

	stats := b.inspection.Stats()
	fmt.Fprintf(&sb, "📊 Всего %d, OK %d, NG %d (%.1f%% OK)", stats.Total, stats.OK, stats.NG, stats.OKRate())
	return sb.String()
}

func (b *Bot) modelsText() string {
	names, err := b.inspection.ModelNames()
	if err != nil {
		b.logger.Error("list models", zap.Error(err))
		return msgNoModels
	}
	if len(names) == 0 {
		return msgNoModels
	}

	current := b.inspection.CurrentModel()
	var sb strings.Builder
	sb.WriteString("📂 Модели:\n")
	for _, n := range names {
		mark := "•"
		if n == current {
			mark = "▶"
		}
		fmt.Fprintf(&sb, "%s %s\n", mark, n)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func outcomeText(o *entity.InspectionOutcome) string {
	var sb strings.Builder
	icon := "✅"
	if !o.Pass {
		icon = "🚫"
	}
	fmt.Fprintf(&sb, "%s %s, макс. зазор %.1f px (%s)\n", icon, o.Verdict(), o.MaxGapWidth, o.Duration.Round(100*time.Microsecond))
	if o.Note != "" {
		fmt.Fprintf(&sb, "⚠️ %s\n", o.Note)
	}
	for _, m := range o.Lines {
		mark := "OK"
		if !m.Pass {
			mark = "NG"
		}
		fmt.Fprintf(&sb, "L%d: %.1f px %s", m.LineIndex+1, m.GapWidth, mark)
		if m.Degraded {
			sb.WriteString(" (мало линий полосы)")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// NotifyNG рассылает уведомление о NG подписчикам и в общий чат
func (b *Bot) NotifyNG(ctx context.Context, outcome *entity.InspectionOutcome) error {
	text := "🚨 NG на линии\n" + outcomeText(outcome)
	var photo []byte
	if outcome.Diagnostics.Annotated != nil {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, outcome.Diagnostics.Annotated, imaging.JPEG, imaging.JPEGQuality(85)); err == nil {
			photo = buf.Bytes()
		}
	}
	return b.broadcast(ctx, text, photo)
}

// NotifyRecovered сообщает, что линия вернулась в OK
func (b *Bot) NotifyRecovered(ctx context.Context, outcome *entity.InspectionOutcome) error {
	return b.broadcast(ctx, msgRecovered, nil)
}

func (b *Bot) broadcast(ctx context.Context, text string, photo []byte) error {
	chats, err := b.alertChats(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, chatID := range chats {
		var c tgbotapi.Chattable
		if len(photo) > 0 {
			p := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "ng.jpg", Bytes: photo})
			p.Caption = text
			c = p
		} else {
			c = tgbotapi.NewMessage(chatID, text)
		}
		if _, err := b.send.Send(c); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) alertChats(ctx context.Context) ([]int64, error) {
	subs, err := b.operators.Subscribers(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var chats []int64
	if b.alertChatID != 0 {
		seen[b.alertChatID] = true
		chats = append(chats, b.alertChatID)
	}
	for _, op := range subs {
		if !seen[op.ChatID] {
			seen[op.ChatID] = true
			chats = append(chats, op.ChatID)
		}
	}
	return chats, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.send.Send(msg); err != nil {
		b.logger.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
