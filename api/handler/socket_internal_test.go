package handler

import (
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var _ = Describe("preview keepalive", func() {
	It("pings idle clients so their pongs keep the connection open", func() {
		saved := wsKeepAliveInterval
		wsKeepAliveInterval = 20 * time.Millisecond
		DeferCleanup(func() { wsKeepAliveInterval = saved })

		hub := NewWSHub()
		r := gin.New()
		r.GET("/socket", PreviewSocketHandler(hub, 30))
		srv := httptest.NewServer(r)
		DeferCleanup(func() {
			hub.Shutdown()
			srv.Close()
		})

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = conn.Close() })

		pinged := make(chan struct{}, 1)
		conn.SetPingHandler(func(data string) error {
			select {
			case pinged <- struct{}{}:
			default:
			}
			return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		})

		go func() {
			defer GinkgoRecover()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		Eventually(pinged).WithTimeout(2 * time.Second).Should(Receive())
		Expect(hub.Len()).To(Equal(1))
	})
})
