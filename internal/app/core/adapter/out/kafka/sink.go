package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/JoeShih716/go-replay-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-replay-ledger/internal/app/core/usecase"
)

// Config Kafka 報表輸出設定
type Config struct {
	Brokers []string `yaml:"brokers" env:"LEDGER_KAFKA_BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"LEDGER_KAFKA_TOPIC"`
}

// reportMessage 每個帳戶一則訊息，金額以字串保留精度
type reportMessage struct {
	RunID     string `json:"run_id"`
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// Sink 把最終報表送到 Kafka topic，key 為 client id
type Sink struct {
	topic string
	runID domain.RunID
	sp    sarama.SyncProducer
}

// NewSink 建立 SyncProducer 並回傳 Sink
func NewSink(cfg Config, runID domain.RunID) (*Sink, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("no kafka brokers")
	}

	scfg := sarama.NewConfig()
	// Reliability-oriented defaults
	scfg.Producer.RequiredAcks = sarama.WaitForAll
	scfg.Producer.Retry.Max = 10
	scfg.Producer.Retry.Backoff = 200 * time.Millisecond
	// SyncProducer must have Return.Successes=true
	scfg.Producer.Return.Successes = true
	scfg.Producer.Return.Errors = true
	scfg.Version = sarama.V2_1_0_0

	sp, err := sarama.NewSyncProducer(cfg.Brokers, scfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewSinkWithProducer(sp, cfg.Topic, runID), nil
}

// NewSinkWithProducer 使用既有的 producer (測試時注入 mocks)
func NewSinkWithProducer(sp sarama.SyncProducer, topic string, runID domain.RunID) *Sink {
	return &Sink{topic: topic, runID: runID, sp: sp}
}

// WriteReports implements usecase.ReportSink.
// 依帳戶順序逐筆同步送出，第一個失敗就回傳
func (s *Sink) WriteReports(ctx context.Context, reports []domain.AccountReport) error {
	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(reportMessage{
			RunID:     s.runID.String(),
			Client:    uint16(r.Client),
			Available: r.Available.String(),
			Held:      r.Held.String(),
			Total:     r.Total.String(),
			Locked:    r.Locked,
		})
		if err != nil {
			return err
		}
		msg := &sarama.ProducerMessage{
			Topic: s.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(uint64(r.Client), 10)),
			Value: sarama.ByteEncoder(payload),
		}
		if _, _, err := s.sp.SendMessage(msg); err != nil {
			return fmt.Errorf("publish client %d: %w", r.Client, err)
		}
	}
	return nil
}

func (s *Sink) Close() error {
	if s.sp != nil {
		return s.sp.Close()
	}
	return nil
}

var _ usecase.ReportSink = (*Sink)(nil)
