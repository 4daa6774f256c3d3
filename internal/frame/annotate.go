package frame

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// 録画インジケータの描画位置と内容
// 位置は左上コーナー付近で固定（markerX, markerYはベースライン座標）
const (
	markerText = "REC"
	markerX    = 50
	markerY    = 50
)

// markerColor はインジケータの色（赤）
var markerColor = color.RGBA{R: 255, A: 255}

// MarkerBounds はインジケータが描画されうる矩形領域を返す
// Annotateはこの領域外のピクセルを一切変更しない
func MarkerBounds() image.Rectangle {
	face := basicfont.Face7x13
	width := font.MeasureString(face, markerText).Ceil()
	return image.Rect(markerX, markerY-face.Ascent, markerX+width, markerY+face.Descent)
}

// Annotate は録画中インジケータをステレオフレームへ直接描画する
// recordingがfalseの場合は何も変更しない
// 結合後かつシンク書き込み前に呼ぶことで、録画ファイルと
// ライブ表示の両方が同じ注釈済みバッファを観測する
func Annotate(s *StereoFrame, recording bool) {
	if !recording {
		return
	}

	d := font.Drawer{
		Dst:  &rgbCanvas{width: s.Width, height: s.Height, data: s.Data},
		Src:  image.NewUniform(markerColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(markerX, markerY),
	}
	d.DrawString(markerText)
}

// rgbCanvas はRGB24の生バッファをdraw.Imageとして扱うためのラッパー
type rgbCanvas struct {
	width  int
	height int
	data   []byte
}

func (c *rgbCanvas) ColorModel() color.Model {
	return color.RGBAModel
}

func (c *rgbCanvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

func (c *rgbCanvas) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return color.RGBA{}
	}
	i := (y*c.width + x) * Channels
	return color.RGBA{R: c.data[i], G: c.data[i+1], B: c.data[i+2], A: 255}
}

func (c *rgbCanvas) Set(x, y int, col color.Color) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	r, g, b, _ := col.RGBA()
	i := (y*c.width + x) * Channels
	c.data[i] = uint8(r >> 8)
	c.data[i+1] = uint8(g >> 8)
	c.data[i+2] = uint8(b >> 8)
}
