// Menu handler for file and library actions
package gui

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fynestorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"film-scanner/internal/io"
	"film-scanner/internal/pipeline"
	"film-scanner/internal/storage"
)

// MenuHandler handles menu actions
type MenuHandler struct {
	window   fyne.Window
	pipeline *pipeline.Pipeline
	store    storage.Store
	loader   *io.ImageLoader
	logger   *logrus.Logger

	onError  func(string, error)
	onStatus func(string)
	onExit   func()
}

func NewMenuHandler(window fyne.Window, p *pipeline.Pipeline, store storage.Store, loader *io.ImageLoader, logger *logrus.Logger) *MenuHandler {
	return &MenuHandler{
		window:   window,
		pipeline: p,
		store:    store,
		loader:   loader,
		logger:   logger,
	}
}

func (mh *MenuHandler) SetCallbacks(onError func(string, error), onStatus func(string), onExit func()) {
	mh.onError = onError
	mh.onStatus = onStatus
	mh.onExit = onExit
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Negative...", mh.OpenImage),
		fyne.NewMenuItem("Export JPEG...", mh.ExportImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Scan Library...", mh.ShowLibrary),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() {
			if mh.onExit != nil {
				mh.onExit()
			}
		}),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	)
	return fyne.NewMainMenu(fileMenu, helpMenu)
}

// OpenImage loads a frame from disk as if it had just been captured.
func (mh *MenuHandler) OpenImage() {
	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		mh.logger.WithField("filepath", path).Info("Loading selected negative")
		go func() {
			buf, err := mh.loader.LoadImage(path)
			if err != nil {
				fyne.Do(func() { mh.showError("Failed to Load Image", err) })
				return
			}
			// Pipeline errors reach the window through its own callback.
			if err := mh.pipeline.LoadFrame(context.Background(), buf, path); err == nil {
				fyne.Do(func() { mh.status(fmt.Sprintf("Loaded: %s", path)) })
			}
		}()
	}, mh.window)

	fileDialog.SetFilter(fynestorage.NewExtensionFileFilter(io.SupportedExtensions()))
	fileDialog.Show()
}

// ExportImage writes the derived frame as JPEG to a chosen file.
func (mh *MenuHandler) ExportImage() {
	scan, err := mh.pipeline.Export("")
	if err != nil {
		mh.showError("Nothing to Export", err)
		return
	}

	fileDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		if _, err := writer.Write(scan.Image); err != nil {
			mh.showError("Failed to Export Image", err)
			return
		}
		mh.logger.WithFields(logrus.Fields{
			"filepath": writer.URI().Path(),
			"bytes":    len(scan.Image),
		}).Info("Scan exported")
		mh.status(fmt.Sprintf("Exported: %s", writer.URI().Path()))
	}, mh.window)

	fileDialog.SetFileName(io.DownloadName(scan.Title, scan.Date))
	fileDialog.SetFilter(fynestorage.NewExtensionFileFilter([]string{".jpg", ".jpeg"}))
	fileDialog.Show()
}

// ShowLibrary lists saved scans with open and delete actions.
func (mh *MenuHandler) ShowLibrary() {
	if mh.store == nil {
		mh.showError("Scan Library", fmt.Errorf("no scan store configured"))
		return
	}
	ctx := context.Background()
	scans, err := mh.store.List(ctx)
	if err != nil {
		mh.showError("Scan Library", err)
		return
	}

	selected := -1
	list := widget.NewList(
		func() int { return len(scans) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			s := scans[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s  (%s, %s)", s.Title,
				s.Metadata.FilmType, s.Date.Local().Format(time.DateTime)))
		},
	)
	list.OnSelected = func(id widget.ListItemID) { selected = id }

	var d dialog.Dialog
	openBtn := widget.NewButton("Open", func() {
		if selected < 0 || selected >= len(scans) {
			return
		}
		id := scans[selected].ID
		d.Hide()
		go mh.openScan(id)
	})
	deleteBtn := widget.NewButton("Delete", func() {
		if selected < 0 || selected >= len(scans) {
			return
		}
		if err := mh.store.Delete(ctx, scans[selected].ID); err != nil {
			mh.showError("Delete Failed", err)
			return
		}
		scans = append(scans[:selected], scans[selected+1:]...)
		selected = -1
		list.UnselectAll()
		list.Refresh()
	})
	clearBtn := widget.NewButton("Delete All", func() {
		dialog.ShowConfirm("Delete All Scans", "Remove every saved scan?", func(ok bool) {
			if !ok {
				return
			}
			if err := mh.store.Clear(ctx); err != nil {
				mh.showError("Delete Failed", err)
				return
			}
			scans = nil
			list.Refresh()
		}, mh.window)
	})

	content := container.NewBorder(nil, container.NewHBox(openBtn, deleteBtn, clearBtn), nil, nil, list)
	d = dialog.NewCustom("Scan Library", "Close", content, mh.window)
	d.Resize(fyne.NewSize(520, 420))
	d.Show()
}

func (mh *MenuHandler) openScan(id string) {
	ctx := context.Background()
	scan, err := mh.store.Get(ctx, id)
	if err != nil {
		fyne.Do(func() { mh.showError("Failed to Open Scan", err) })
		return
	}
	if err := mh.pipeline.OpenScan(ctx, scan); err == nil {
		fyne.Do(func() { mh.status(fmt.Sprintf("Opened: %s", scan.Title)) })
	}
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel("Film Scanner"),
		widget.NewSeparator(),
		widget.NewLabel("Turns photographed negatives and slides into"),
		widget.NewLabel("positives with live adjustment and cropping."),
		widget.NewSeparator(),
		widget.NewLabel("Built with Go and Fyne"),
	)
	aboutDialog := dialog.NewCustom("About", "Close", content, mh.window)
	aboutDialog.Resize(fyne.NewSize(400, 240))
	aboutDialog.Show()
}

func (mh *MenuHandler) showError(title string, err error) {
	if mh.onError != nil {
		mh.onError(title, err)
	}
}

func (mh *MenuHandler) status(message string) {
	if mh.onStatus != nil {
		mh.onStatus(message)
	}
}
