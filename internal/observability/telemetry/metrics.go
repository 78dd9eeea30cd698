package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Métricas de comandos
	VoiceCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfa_voice_commands_total",
		Help: "Total de comandos de voz resolvidos",
	}, []string{"label", "path"})

	VoiceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alfa_voice_resolution_seconds",
		Help:    "Latência de resolução de comandos",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	VoiceUtterancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfa_voice_utterances_total",
		Help: "Total de transcrições recebidas, por destino",
	}, []string{"outcome"})

	RemoteFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfa_remote_classifier_failures_total",
		Help: "Falhas do classificador remoto, por motivo",
	}, []string{"reason"})

	// Métricas de estado
	ActivityState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alfa_activity_active",
		Help: "1 quando o assistente está ativo, 0 quando suspenso",
	})

	CredentialFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alfa_credential_fetches_total",
		Help: "Total de buscas de credencial",
	}, []string{"result"})
)
