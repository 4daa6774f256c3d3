package frame

import (
	"errors"
	"fmt"
)

// Channels はフレームのチャンネル数（RGB24固定）
const Channels = 3

// ErrDimensionMismatch は結合不可能なフレームの組み合わせを表す
// カメラ解像度はプロセス起動時に固定されるため、通常運用では発生しない
var ErrDimensionMismatch = errors.New("フレームの寸法が一致しません")

// Frame は1台のカメラから取得したRGB24フレーム
type Frame struct {
	Width  int    // 画像幅
	Height int    // 画像高さ
	Data   []byte // RGB24データ（長さは Width*Height*Channels）
}

// New は指定された寸法のゼロ埋めフレームを作成する
func New(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*Channels),
	}
}

// Stride は1行あたりのバイト数を返す
func (f Frame) Stride() int {
	return f.Width * Channels
}

// Valid はフレームのデータ長が寸法と整合しているかを検証する
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height*Channels
}

// SameDimensions は2つのフレームが結合可能かを判定する
func (f Frame) SameDimensions(other Frame) bool {
	return f.Width == other.Width && f.Height == other.Height
}

// StereoFrame は左右フレームを水平結合したステレオフレーム
// 毎ループで新規に生成され、シンクへの書き込み後に破棄される
type StereoFrame struct {
	Width  int    // 結合後の幅（単体フレームの2倍）
	Height int    // 画像高さ
	Data   []byte // RGB24データ
}

// Stride は1行あたりのバイト数を返す
func (s StereoFrame) Stride() int {
	return s.Width * Channels
}

// BGR はシンクが要求するBGR24並びへ変換した新しいバッファを返す
// 録画・表示シンクは共にBGR24を受け取るため、変換は1フレームにつき1回で済む
func (s StereoFrame) BGR() []byte {
	out := make([]byte, len(s.Data))
	for i := 0; i+2 < len(s.Data); i += Channels {
		out[i] = s.Data[i+2]
		out[i+1] = s.Data[i+1]
		out[i+2] = s.Data[i]
	}
	return out
}

// Compose は2つの同寸法フレームを水平結合する
// 左半分にはa、右半分にはbがビット単位でそのまま配置される
func Compose(a, b Frame) (StereoFrame, error) {
	if !a.SameDimensions(b) {
		return StereoFrame{}, fmt.Errorf("左 %dx%d 右 %dx%d: %w",
			a.Width, a.Height, b.Width, b.Height, ErrDimensionMismatch)
	}
	if !a.Valid() || !b.Valid() {
		return StereoFrame{}, fmt.Errorf("フレームデータが不正です: %w", ErrDimensionMismatch)
	}

	stereo := StereoFrame{
		Width:  a.Width * 2,
		Height: a.Height,
		Data:   make([]byte, a.Width*2*a.Height*Channels),
	}

	srcStride := a.Stride()
	dstStride := stereo.Stride()
	for y := 0; y < a.Height; y++ {
		copy(stereo.Data[y*dstStride:], a.Data[y*srcStride:(y+1)*srcStride])
		copy(stereo.Data[y*dstStride+srcStride:], b.Data[y*srcStride:(y+1)*srcStride])
	}

	return stereo, nil
}
