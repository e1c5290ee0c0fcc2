// pkg/entity/renderer.go
package entity

// Renderer handles rendering game entities
type Renderer interface {
	RenderBall(ball *Ball)
	RenderPaddle(paddle *Paddle)
	RenderBrick(brick *Brick)
	Clear()
	Present()
}
