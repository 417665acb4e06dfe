package cli

import (
	"fmt"

	"github.com/MrWong99/meetingctl/internal/config"
	"github.com/MrWong99/meetingctl/internal/pipeline"
	"github.com/MrWong99/meetingctl/pkg/provider/converter"
	"github.com/MrWong99/meetingctl/pkg/provider/converter/ffmpeg"
	"github.com/MrWong99/meetingctl/pkg/provider/recorder"
	"github.com/MrWong99/meetingctl/pkg/provider/recorder/audiohijack"
	"github.com/MrWong99/meetingctl/pkg/provider/summarizer"
	"github.com/MrWong99/meetingctl/pkg/provider/summarizer/anyllm"
	oaisummarizer "github.com/MrWong99/meetingctl/pkg/provider/summarizer/openai"
	"github.com/MrWong99/meetingctl/pkg/provider/transcriber"
	"github.com/MrWong99/meetingctl/pkg/provider/transcriber/whispercli"
)

// defaultSummaryModel is used when MEETINGCTL_SUMMARY_MODEL is unset.
const defaultSummaryModel = "gpt-4o-mini"

func (a *App) newRecorder() recorder.Provider {
	return audiohijack.New()
}

func (a *App) newTranscriber() transcriber.Provider {
	var opts []whispercli.Option
	if binary := a.getenv("MEETINGCTL_WHISPER_BIN"); binary != "" {
		opts = append(opts, whispercli.WithBinary(binary))
	}
	if model := a.getenv("MEETINGCTL_WHISPER_MODEL"); model != "" {
		opts = append(opts, whispercli.WithModel(model))
	}
	return whispercli.New(opts...)
}

func (a *App) newConverter() converter.Provider {
	var opts []ffmpeg.Option
	if binary := a.getenv("MEETINGCTL_FFMPEG_BIN"); binary != "" {
		opts = append(opts, ffmpeg.WithBinary(binary))
	}
	return ffmpeg.New(opts...)
}

// newSummarizer builds the summarizer from MEETINGCTL_SUMMARY_PROVIDER.
// "openai" (the default) talks to the OpenAI API directly; any other value
// is handed to the any-llm multi-provider backend, so "anthropic", "gemini"
// and "ollama" work out of the box.
func (a *App) newSummarizer() (summarizer.Provider, error) {
	providerName := a.getenv("MEETINGCTL_SUMMARY_PROVIDER")
	if providerName == "" {
		providerName = "openai"
	}
	model := a.getenv("MEETINGCTL_SUMMARY_MODEL")
	if model == "" {
		model = defaultSummaryModel
	}

	// The fixture summary never reaches a model, so no credentials are
	// required to construct the client.
	if a.getenv("MEETINGCTL_PROCESSING_SUMMARY_JSON") != "" {
		return summarizer.NewClient(nil), nil
	}

	if providerName == "openai" {
		var opts []oaisummarizer.Option
		if baseURL := a.getenv("MEETINGCTL_SUMMARY_BASE_URL"); baseURL != "" {
			opts = append(opts, oaisummarizer.WithBaseURL(baseURL))
		}
		completer, err := oaisummarizer.New(a.getenv("OPENAI_API_KEY"), model, opts...)
		if err != nil {
			return nil, fmt.Errorf("cli: openai summarizer: %w", err)
		}
		return summarizer.NewClient(completer), nil
	}

	completer, err := anyllm.New(providerName, model)
	if err != nil {
		return nil, fmt.Errorf("cli: %s summarizer: %w", providerName, err)
	}
	return summarizer.NewClient(completer), nil
}

func (a *App) newPipeline(cfg *config.Config) (*pipeline.Runner, transcriber.Provider, error) {
	summ, err := a.newSummarizer()
	if err != nil {
		return nil, nil, err
	}
	t := a.newTranscriber()
	runner := pipeline.NewRunner(
		cfg.VaultPath, cfg.RecordingsPath, cfg.ProcessedJobsFile,
		t, summ, a.newConverter(),
		pipeline.WithLogger(a.logger),
	)
	return runner, t, nil
}
