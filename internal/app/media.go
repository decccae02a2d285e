package app

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]*\ssrc\s*=\s*["']([^"']+)["']`)

// extractEmbeddedImages scans a card description for <img> references and
// creates attachments for any URL not already attached to the card. Returns
// the advisory list of references that were skipped as duplicates. Every
// failure is logged and swallowed; this step never fails the card update.
func (s *Service) extractEmbeddedImages(ctx context.Context, cardID, description string) []string {
	var duplicates []string

	matches := imgSrcPattern.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		return nil
	}

	existing, err := s.store.ListCardAttachments(ctx, cardID)
	if err != nil {
		log.Printf("media: list attachments for card %s: %v", cardID, err)
		return nil
	}
	seen := make(map[string]bool, len(existing))
	for _, attachment := range existing {
		seen[strings.ToLower(attachment.URL)] = true
	}

	for _, match := range matches {
		src := match[1]
		key := strings.ToLower(src)
		if seen[key] {
			duplicates = append(duplicates, src)
			continue
		}

		err := s.store.InsertAttachment(ctx, store.Attachment{
			ID:     util.NewID("att"),
			CardID: cardID,
			URL:    src,
			Type:   imageAttachmentType(src),
		})
		if errors.Is(err, store.ErrDuplicateAttachment) {
			// A concurrent writer got there first; same outcome as the
			// set check above.
			duplicates = append(duplicates, src)
			seen[key] = true
			continue
		}
		if err != nil {
			log.Printf("media: create attachment for card %s: %v", cardID, err)
			continue
		}
		seen[key] = true
	}

	return duplicates
}

// imageAttachmentType infers the attachment type from the reference:
// data:image/<subtype> URIs carry their subtype, everything else is "image".
func imageAttachmentType(src string) string {
	const prefix = "data:image/"
	if !strings.HasPrefix(strings.ToLower(src), prefix) {
		return "image"
	}
	rest := src[len(prefix):]
	end := strings.IndexAny(rest, ";,")
	if end == -1 {
		end = len(rest)
	}
	subtype := strings.ToLower(rest[:end])
	if subtype == "" {
		return "image"
	}
	return "image/" + subtype
}
