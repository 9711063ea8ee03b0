package model

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// checksumSize は payload の後ろに付く xxhash64 のバイト数
const checksumSize = 8

// Checksum は payload の xxhash64 を返す
func Checksum(payload []byte) uint64 {
	return xxhash.Sum64(payload)
}

// MarshalRecord はレコードを検証してJSONにエンコードし、チェックサムと共に返す
//
// パラメータ:
//   - rec: エンコードするレコード
//
// 戻り値:
//   - []byte: JSON payload
//   - uint64: payload の xxhash64
//   - error: 検証またはエンコードに失敗した場合のエラー
func MarshalRecord(rec *ArtifactRecord) ([]byte, uint64, error) {
	if err := rec.Validate(); err != nil {
		return nil, 0, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, 0, errors.NewModelError("MarshalRecord", "encode failed", err)
	}
	return payload, Checksum(payload), nil
}

// UnmarshalRecord は payload のチェックサムを確認してからレコードをデコードする
//
// パラメータ:
//   - payload: MarshalRecord が返した JSON
//   - sum: 保存時に記録したチェックサム
//
// 戻り値:
//   - *ArtifactRecord: デコードされたレコード
//   - error: 破損・デコード失敗・検証失敗の場合のエラー
func UnmarshalRecord(payload []byte, sum uint64) (*ArtifactRecord, error) {
	if got := Checksum(payload); got != sum {
		return nil, errors.NewModelError("UnmarshalRecord", "checksum mismatch", errors.Newf("expected %016x, got %016x", sum, got))
	}
	rec := &ArtifactRecord{}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, errors.NewModelError("UnmarshalRecord", "decode failed", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, errors.NewModelError("UnmarshalRecord", "invalid record", err)
	}
	return rec, nil
}

// EncodeRecord はレコードを w に書き込む。フォーマットは JSON payload の後ろに
// big-endian の xxhash64 を付けたもの。
//
// 使用例:
//
//	f, _ := os.Create("house-price-model.json")
//	err := model.EncodeRecord(f, rec)
func EncodeRecord(w io.Writer, rec *ArtifactRecord) error {
	payload, sum, err := MarshalRecord(rec)
	if err != nil {
		return err
	}
	var trailer [checksumSize]byte
	binary.BigEndian.PutUint64(trailer[:], sum)
	if _, err := w.Write(payload); err != nil {
		return errors.NewModelError("EncodeRecord", "write failed", err)
	}
	if _, err := w.Write(trailer[:]); err != nil {
		return errors.NewModelError("EncodeRecord", "write failed", err)
	}
	return nil
}

// DecodeRecord は EncodeRecord が書いたデータを r から読み込む
func DecodeRecord(r io.Reader) (*ArtifactRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewModelError("DecodeRecord", "read failed", err)
	}
	if len(data) <= checksumSize {
		return nil, errors.NewModelError("DecodeRecord", "truncated record", nil)
	}
	split := len(data) - checksumSize
	return UnmarshalRecord(data[:split], binary.BigEndian.Uint64(data[split:]))
}
