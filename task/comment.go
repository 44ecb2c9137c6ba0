package task

import (
	"fmt"
	"strings"
)

// maxBlockChars is the external API's per-block rich text limit.
const maxBlockChars = 2000

// Annotations carries text styling for a rich text fragment.
type Annotations struct {
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Color  string `json:"color,omitempty"`
}

// BlockText is one styled text fragment inside a block.
type BlockText struct {
	Type string `json:"type"`
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// BlockIcon is the icon of a callout block.
type BlockIcon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// BlockBody holds the rich text of a paragraph or callout block.
type BlockBody struct {
	RichText []BlockText `json:"rich_text"`
	Icon     *BlockIcon  `json:"icon,omitempty"`
	Color    string      `json:"color,omitempty"`
}

// CommentBlock is one structured block of a posted comment.
type CommentBlock struct {
	Object    string     `json:"object"`
	Type      string     `json:"type"`
	Callout   *BlockBody `json:"callout,omitempty"`
	Paragraph *BlockBody `json:"paragraph,omitempty"`
}

func textFragment(content string, ann *Annotations) BlockText {
	bt := BlockText{Type: "text", Annotations: ann}
	bt.Text.Content = content
	return bt
}

// CommentBlocks renders an employee's response as structured comment
// blocks: a callout header, the response chunked into paragraphs at the
// block size limit, and a trailing model attribution.
func CommentBlocks(response, employeeName, model string) []CommentBlock {
	blocks := []CommentBlock{{
		Object: "block",
		Type:   "callout",
		Callout: &BlockBody{
			RichText: []BlockText{textFragment(
				fmt.Sprintf("AI Assistant Response (%s)", employeeName),
				&Annotations{Bold: true},
			)},
			Icon:  &BlockIcon{Type: "emoji", Emoji: "🤖"},
			Color: "blue",
		},
	}}

	for _, chunk := range ChunkText(response, maxBlockChars) {
		blocks = append(blocks, CommentBlock{
			Object: "block",
			Type:   "paragraph",
			Paragraph: &BlockBody{
				RichText: []BlockText{textFragment(chunk, nil)},
			},
		})
	}

	blocks = append(blocks, CommentBlock{
		Object: "block",
		Type:   "paragraph",
		Paragraph: &BlockBody{
			RichText: []BlockText{textFragment(
				fmt.Sprintf("Model: %s", model),
				&Annotations{Italic: true, Color: "gray"},
			)},
		},
	})

	return blocks
}

// ChunkText splits text into chunks of at most max characters,
// preferring paragraph breaks and falling back to word boundaries when a
// single paragraph exceeds the limit.
func ChunkText(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var current string

	flush := func() {
		if trimmed := strings.TrimSpace(current); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current = ""
	}

	for _, para := range strings.Split(text, "\n\n") {
		if current != "" && len(current)+len(para)+2 > max {
			flush()
		}
		if current == "" {
			current = para
		} else {
			current += "\n\n" + para
		}

		// A single oversized paragraph gets split on word boundaries.
		if len(current) > max {
			for _, piece := range splitWords(current, max) {
				if len(piece) > 0 {
					chunks = append(chunks, piece)
				}
			}
			// Keep the last piece open so following paragraphs can join it.
			if n := len(chunks); n > 0 {
				current = chunks[n-1]
				chunks = chunks[:n-1]
			}
		}
	}
	flush()

	return chunks
}

func splitWords(text string, max int) []string {
	var pieces []string
	var current string
	for _, word := range strings.Split(text, " ") {
		if current != "" && len(current)+len(word)+1 > max {
			pieces = append(pieces, strings.TrimSpace(current))
			current = word
			continue
		}
		if current == "" {
			current = word
		} else {
			current += " " + word
		}
	}
	if strings.TrimSpace(current) != "" {
		pieces = append(pieces, strings.TrimSpace(current))
	}
	return pieces
}
