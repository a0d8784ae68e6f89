package parser

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/rank"
)

const (
	// DefaultSurveySample - сколько записей просматривается при анализе структуры.
	DefaultSurveySample = 1000
	surveyTopFields     = 20
)

// Survey строит отчет о структуре файла: ключи корневого объекта, типы записей,
// встречающиеся поля и типы медиа по первым sampleSize записям.
// Корневые ключи собираются до массива messages включительно.
func (s *JSONStream) Survey(ctx context.Context, sampleSize int, counter *LineCounter) (*domain.StructureReport, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSurveySample
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "stat export")
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "open export")
	}
	defer f.Close()

	report := &domain.StructureReport{
		Path:          s.path,
		FileSizeBytes: info.Size(),
		RootKeys:      []string{},
	}

	d := jx.Decode(f, s.bufSize)
	root, err := d.ObjIter()
	if err != nil {
		return nil, errors.Wrap(err, "read root object")
	}

	types := rank.NewCounter[string]()
	fields := rank.NewCounter[string]()
	media := rank.NewCounter[string]()
	users := make(map[string]struct{})

	for root.Next() {
		key := string(root.Key())
		report.RootKeys = append(report.RootKeys, key)
		if key != messagesKey {
			if err := d.Skip(); err != nil {
				return nil, errors.Wrapf(err, "skip %q", key)
			}
			continue
		}

		if d.Next() != jx.Array {
			break
		}
		arr, err := d.ArrIter()
		if err != nil {
			return nil, errors.Wrap(err, "open messages array")
		}
		for report.SampledRecords+report.SkippedRecords < sampleSize && arr.Next() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			raw, err := d.Raw()
			if err != nil {
				return nil, errors.Wrap(err, "read record")
			}
			if err := surveyRecord(raw, types, fields, media, users); err != nil {
				s.logger.Warn("Пропущена некорректная запись при анализе структуры", "error", err)
				report.SkippedRecords++
				continue
			}
			report.SampledRecords++
		}
		if err := arr.Err(); err != nil {
			return nil, errors.Wrap(err, "read messages array")
		}
		break
	}
	if err := root.Err(); err != nil {
		return nil, errors.Wrap(err, "read root object")
	}

	report.MessageTypes = toKeyCounts(types.MostCommon(0))
	report.Fields = toKeyCounts(fields.MostCommon(surveyTopFields))
	report.MediaTypes = toKeyCounts(media.MostCommon(0))
	report.UniqueUsers = len(users)
	if counter != nil {
		report.ApproximateTotal = counter.Count(ctx)
	}

	return report, nil
}

func surveyRecord(raw jx.Raw, types, fields, media *rank.Counter[string], users map[string]struct{}) error {
	if raw.Type() != jx.Object {
		return errors.Errorf("record is %s, not object", raw.Type())
	}

	msgType := "unknown"
	var seen []string
	err := jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
		k := string(key)
		seen = append(seen, k)
		switch k {
		case "type":
			if v, ok, err := readString(d); err != nil {
				return err
			} else if ok {
				msgType = v
			}
		case "from_id":
			v, _, err := readString(d)
			if err != nil {
				return err
			}
			users[v] = struct{}{}
		case "media_type":
			v, _, err := readString(d)
			if err != nil {
				return err
			}
			media.Inc(v)
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return err
	}

	types.Inc(msgType)
	for _, k := range seen {
		fields.Inc(k)
	}
	return nil
}

func toKeyCounts(entries []rank.Entry[string]) []domain.KeyCount {
	out := make([]domain.KeyCount, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.KeyCount{Key: e.Key, Count: e.Count})
	}
	return out
}
