package summarize

import (
	"fmt"
	"strings"
)

// Options customize how a summary reads. Zero values fall back to the
// defaults in normalize.
type Options struct {
	Tone         string // neutral, formal, casual, sarcastic
	Length       string // short, medium, long
	Language     string // BCP 47-ish code: "es", "en", ...
	IncludeNames bool
}

func (o Options) normalize() Options {
	if o.Tone == "" {
		o.Tone = "neutral"
	}
	if o.Length == "" {
		o.Length = "medium"
	}
	if o.Language == "" {
		o.Language = "es"
	}
	return o
}

const (
	chatSystem = `Eres un asistente que resume conversaciones de chats grupales.
Recibes una transcripcion con marcas de tiempo y autores. Produce un resumen
claro de los temas tratados, las decisiones tomadas y las preguntas abiertas.
No inventes contenido que no aparezca en la transcripcion.`

	documentSystem = `Eres un asistente que resume documentos. Conserva la
estructura argumental del texto: ideas principales primero, detalles de apoyo
despues. No inventes contenido.`

	audioSystem = `Eres un asistente que resume transcripciones de audio o notas
de voz. El texto puede tener errores de transcripcion; ignoralos y resume lo
que se dijo. No inventes contenido.`

	videoSystem = `Eres un asistente que resume transcripciones de videos.
Resume el contenido hablado; ignora marcas de tiempo y ruido de transcripcion.
No inventes contenido.`

	mapSystem = `Eres un asistente que extrae los puntos clave de un fragmento
de un texto mas largo. Devuelve una lista densa de hechos, temas y decisiones
presentes en el fragmento, sin introduccion ni conclusion. Otro paso combinara
los fragmentos despues.`

	reduceInstruction = `Los siguientes son resumenes parciales de fragmentos
consecutivos del mismo contenido, en orden. Combinalos en un unico resumen
coherente, eliminando repeticiones y manteniendo el orden de los hechos.`
)

var lengthHints = map[string]string{
	"short":  "Se muy breve: unas pocas frases.",
	"medium": "Extension moderada: uno o dos parrafos.",
	"long":   "Se detallado: cubre todos los temas relevantes.",
}

var toneHints = map[string]string{
	"neutral":   "",
	"formal":    "Usa un registro formal.",
	"casual":    "Usa un registro cercano y coloquial.",
	"sarcastic": "Usa un tono ironico y sarcastico, sin faltar al respeto.",
}

func systemFor(kind Kind) string {
	switch kind {
	case KindChat:
		return chatSystem
	case KindDocument:
		return documentSystem
	case KindAudioTranscript:
		return audioSystem
	case KindVideoTranscript:
		return videoSystem
	default:
		return documentSystem
	}
}

// buildSystem assembles the full system prompt for the final summary call.
func buildSystem(kind Kind, opts Options) string {
	opts = opts.normalize()

	var b strings.Builder
	b.WriteString(systemFor(kind))
	if hint := lengthHints[opts.Length]; hint != "" {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	if hint := toneHints[opts.Tone]; hint != "" {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	if kind == KindChat {
		if opts.IncludeNames {
			b.WriteString("\nMenciona a los participantes por su nombre.")
		} else {
			b.WriteString("\nNo menciones nombres de participantes.")
		}
	}
	fmt.Fprintf(&b, "\nEscribe el resumen en el idioma %q.", opts.Language)
	return b.String()
}

// buildMapSystem is the system prompt for per-chunk extraction. It stays
// language-aware so partial notes and the final reduce agree.
func buildMapSystem(opts Options) string {
	opts = opts.normalize()
	return fmt.Sprintf("%s\nEscribe en el idioma %q.", mapSystem, opts.Language)
}

// buildReduceUser joins the per-chunk extracts into the reduce-step user
// prompt, preserving chunk order.
func buildReduceUser(extracts []string) string {
	return reduceInstruction + "\n\n" + strings.Join(extracts, "\n\n---\n\n")
}
