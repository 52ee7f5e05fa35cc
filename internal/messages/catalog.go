// Package messages renders user-facing notices and delivers them through a
// Courier. Texts live in an x/text catalog keyed by Key, with English and
// Brazilian Portuguese translations.
package messages

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a user-facing message.
type Key string

const (
	NoMediaDevice                   Key = "no_media_device"
	InternalError                   Key = "internal_error"
	DeviceConnectionLost            Key = "device_connection_lost"
	DeviceNotFound                  Key = "device_not_found"
	OutOfDiskSpace                  Key = "out_of_disk_space"
	LostFileAccess                  Key = "lost_file_access"
	RecordWithoutSelection          Key = "record_without_selection"
	RecordingFinishing              Key = "recording_finishing"
	PreferencesLockedWhileRecording Key = "preferences_locked_while_recording"
	PhotoWhenIdle                   Key = "photo_when_idle"
	PhotoWithoutSelection           Key = "photo_without_selection"
	PhotoUnavailable                Key = "photo_unavailable"
	PhotoNotSaved                   Key = "photo_not_saved"
)

var supported = []language.Tag{language.English, language.BrazilianPortuguese}

var texts = map[Key][2]string{
	NoMediaDevice: {
		"No video capture device was found. Connect a device and enable video again.",
		"Nenhum dispositivo de captura de vídeo foi encontrado. Conecte um dispositivo e ative o vídeo novamente.",
	},
	InternalError: {
		"An internal error occurred. See the log for details.",
		"Ocorreu um erro interno. Consulte o log para mais detalhes.",
	},
	DeviceConnectionLost: {
		"The connection to the video device was lost.",
		"A conexão com o dispositivo de vídeo foi perdida.",
	},
	DeviceNotFound: {
		"The video device %s was not found.",
		"O dispositivo de vídeo %s não foi encontrado.",
	},
	OutOfDiskSpace: {
		"The disk is full. The recording was stopped.",
		"O disco está cheio. A gravação foi interrompida.",
	},
	LostFileAccess: {
		"The recording file can no longer be written. The recording was stopped.",
		"O arquivo da gravação não pode mais ser escrito. A gravação foi interrompida.",
	},
	RecordWithoutSelection: {
		"Select a target before recording.",
		"Selecione um alvo antes de gravar.",
	},
	RecordingFinishing: {
		"The recording is being finished. Please wait.",
		"A gravação está sendo finalizada. Aguarde.",
	},
	PreferencesLockedWhileRecording: {
		"Video settings cannot be changed while recording.",
		"As configurações de vídeo não podem ser alteradas durante a gravação.",
	},
	PhotoWhenIdle: {
		"Start the video preview before taking a photo.",
		"Inicie a pré-visualização do vídeo antes de tirar uma foto.",
	},
	PhotoWithoutSelection: {
		"Select a target before taking a photo.",
		"Selecione um alvo antes de tirar uma foto.",
	},
	PhotoUnavailable: {
		"No preview frame is available yet.",
		"Ainda não há quadro de pré-visualização disponível.",
	},
	PhotoNotSaved: {
		"The photo could not be saved.",
		"A foto não pôde ser salva.",
	},
}

var builtCatalog = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, translations := range texts {
		for i, tag := range supported {
			if err := b.SetString(tag, string(key), translations[i]); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Keys returns every known message key.
func Keys() []Key {
	keys := make([]Key, 0, len(texts))
	for key := range texts {
		keys = append(keys, key)
	}
	return keys
}

// Match returns the supported language closest to lang. Unknown or empty
// values select English.
func Match(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, index, confidence := language.NewMatcher(supported).Match(tag)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

// NewPrinter returns a printer rendering catalog messages in lang.
func NewPrinter(lang string) *message.Printer {
	return message.NewPrinter(Match(lang), message.Catalog(builtCatalog))
}

// Render formats key with args in lang.
func Render(p *message.Printer, key Key, args ...any) string {
	return p.Sprintf(string(key), args...)
}
