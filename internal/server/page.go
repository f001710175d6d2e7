package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

// indexHTML is the single-page UI: upload or record a speech sample, watch
// live progress over the websocket, review the transcript with click-to-seek
// buttons on low-confidence words, and download the session as text.
const indexHTML = `<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>日本語発音診断</title>
<style>
body { font-family: "Hiragino Sans", "Noto Sans JP", sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; color: #222; }
h1 { font-size: 1.4rem; }
fieldset { border: 1px solid #ccc; border-radius: 6px; margin-bottom: 1rem; }
label { display: block; margin: .5rem 0 .2rem; }
input[type=text] { width: 100%; padding: .4rem; box-sizing: border-box; }
button { padding: .5rem 1rem; border-radius: 6px; border: 1px solid #888; background: #f5f5f5; cursor: pointer; }
button.primary { background: #2563eb; color: #fff; border-color: #2563eb; }
button:disabled { opacity: .5; cursor: default; }
.word-btn { margin: 2px; padding: 2px 6px; font-size: .95rem; }
.word-btn.low { background: #fde68a; border-color: #d97706; }
#report { white-space: pre-wrap; background: #f8fafc; border: 1px solid #e2e8f0; border-radius: 6px; padding: 1rem; }
#status { color: #2563eb; }
.error { color: #b91c1c; background: #fee2e2; padding: .5rem 1rem; border-radius: 6px; }
.warning { color: #92400e; background: #fef3c7; padding: .5rem 1rem; border-radius: 6px; margin: .3rem 0; }
.hidden { display: none; }
</style>
</head>
<body>
<h1>📝 日本語発音診断カルテ</h1>
<p>👇 学習者の情報を入力してください</p>

<fieldset>
<legend>学習者情報</legend>
<label>学習者氏名（任意）</label>
<input type="text" id="learnerName" placeholder="入力がない場合は「氏名なし」として処理されます">
<label>国籍（任意）</label>
<input type="text" id="nationality" placeholder="例: ベトナム">
</fieldset>

<fieldset>
<legend>音声サンプル</legend>
<label>📁 ファイルをアップロード</label>
<input type="file" id="audioFile" accept="audio/*,video/*">
<label>🎙️ その場で録音する</label>
<button id="recordBtn">録音開始</button>
<audio id="player" controls class="hidden"></audio>
</fieldset>

<button id="analyzeBtn" class="primary">▶ 診断を開始</button>
<p id="status" class="hidden"></p>
<div id="errorBox" class="error hidden"></div>

<div id="resultArea" class="hidden">
<h2>音声認識結果</h2>
<p>⚠マークの単語は発音が不明瞭だった可能性があります。クリックするとその位置から再生します。</p>
<div id="words"></div>
<h2>診断カルテ</h2>
<div id="warnings"></div>
<div id="report"></div>
<button id="downloadBtn">📥 診断結果をテキストで保存</button>
</div>

<script>
(() => {
  const stageLabels = {
    transcoding: "音声を変換しています…",
    recognizing: "音声を認識しています…（長い音声は数分かかります）",
    generating: "AI講師がカルテを作成しています…",
    logging: "記録を保存しています…",
    done: "完了"
  };

  let recorder = null;
  let recordedBlob = null;
  let lastResult = null;

  const el = id => document.getElementById(id);

  el("recordBtn").addEventListener("click", async () => {
    if (recorder && recorder.state === "recording") {
      recorder.stop();
      return;
    }
    try {
      const stream = await navigator.mediaDevices.getUserMedia({ audio: true });
      const chunks = [];
      recorder = new MediaRecorder(stream);
      recorder.ondataavailable = e => chunks.push(e.data);
      recorder.onstop = () => {
        recordedBlob = new Blob(chunks, { type: recorder.mimeType });
        const player = el("player");
        player.src = URL.createObjectURL(recordedBlob);
        player.classList.remove("hidden");
        el("recordBtn").textContent = "録音開始";
        stream.getTracks().forEach(t => t.stop());
      };
      recorder.start();
      el("recordBtn").textContent = "■ 録音停止";
    } catch (err) {
      showError("マイクにアクセスできません: " + err.message);
    }
  });

  el("analyzeBtn").addEventListener("click", async () => {
    const file = el("audioFile").files[0] || recordedBlob;
    if (!file) {
      showError("音声ファイルを選択するか、録音してください。");
      return;
    }
    hideError();
    el("resultArea").classList.add("hidden");
    el("analyzeBtn").disabled = true;

    try {
      const sess = await fetch("/api/session").then(r => r.json());
      openProgress(sess.session_id);

      const form = new FormData();
      form.append("audio", file, file.name || "recording.webm");
      form.append("learner_name", el("learnerName").value.trim());
      form.append("nationality", el("nationality").value.trim());
      form.append("session_id", sess.session_id);

      const resp = await fetch("/api/analyze", { method: "POST", body: form });
      const data = await resp.json();
      if (!resp.ok) {
        showError(data.error || "診断に失敗しました。");
        return;
      }
      render(data, file);
    } catch (err) {
      showError("通信エラー: " + err.message);
    } finally {
      el("analyzeBtn").disabled = false;
      setStatus("");
    }
  });

  function openProgress(sessionID) {
    const proto = location.protocol === "https:" ? "wss:" : "ws:";
    const ws = new WebSocket(proto + "//" + location.host + "/ws/progress?session_id=" + sessionID);
    ws.onmessage = e => setStatus(stageLabels[e.data] || e.data);
    ws.onerror = () => {};
  }

  function render(data, sourceFile) {
    lastResult = data;
    const player = el("player");
    if (sourceFile) {
      player.src = URL.createObjectURL(sourceFile);
      player.classList.remove("hidden");
    }

    const words = el("words");
    words.innerHTML = "";
    for (const w of data.words) {
      const btn = document.createElement("button");
      btn.className = "word-btn" + (w.low_confidence ? " low" : "");
      btn.textContent = (w.low_confidence ? "⚠" : "") + w.text;
      btn.title = "信頼度 " + w.confidence.toFixed(2) + " / " + w.start_seconds.toFixed(1) + "秒";
      btn.addEventListener("click", () => {
        player.currentTime = w.start_seconds;
        player.play();
      });
      words.appendChild(btn);
    }

    const warnings = el("warnings");
    warnings.innerHTML = "";
    for (const msg of data.warnings || []) {
      const div = document.createElement("div");
      div.className = "warning";
      div.textContent = "⚠ " + msg;
      warnings.appendChild(div);
    }

    el("report").textContent = data.report;
    el("resultArea").classList.remove("hidden");
  }

  el("downloadBtn").addEventListener("click", () => {
    if (!lastResult) return;
    const blob = new Blob([lastResult.artifact], { type: "text/plain" });
    const a = document.createElement("a");
    a.href = URL.createObjectURL(blob);
    a.download = lastResult.artifact_name;
    a.click();
    URL.revokeObjectURL(a.href);
  });

  function setStatus(msg) {
    const status = el("status");
    status.textContent = msg;
    status.classList.toggle("hidden", msg === "");
  }
  function showError(msg) {
    const box = el("errorBox");
    box.textContent = "❌ " + msg;
    box.classList.remove("hidden");
  }
  function hideError() {
    el("errorBox").classList.add("hidden");
  }
})();
</script>
</body>
</html>
`
